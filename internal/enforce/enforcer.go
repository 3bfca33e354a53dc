package enforce

import (
	"context"
	"fmt"
	"time"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/telemetry"
)

// Outcome is the result of one enforcement attempt.
type Outcome int

const (
	// OutcomeError means the attempt ended with an error that is not an
	// enforcement outcome (telemetry, transport).
	OutcomeError Outcome = iota
	OutcomeSuccess
	OutcomeAlreadyCorrect
	OutcomeNoAntenna
	OutcomeBandMismatch
	OutcomeUnsupported
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyCorrect:
		return "already_correct"
	case OutcomeNoAntenna:
		return "no_antenna"
	case OutcomeBandMismatch:
		return "band_mismatch"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "error"
	}
}

// Converged reports whether the router ended on the desired band.
func (o Outcome) Converged() bool {
	return o == OutcomeSuccess || o == OutcomeAlreadyCorrect
}

// DefaultConnectionTimeout is the wait used inside the corrective sequence.
const DefaultConnectionTimeout = 20 * time.Second

// Router actions, as they appear in the event log and metrics.
const (
	ActionSetNetworkMode = "setNetworkMode"
	ActionDataOff        = "setDataSwitchOff"
	ActionDataOn         = "setDataSwitchOn"
	ActionSetBands       = "setLTEBandList"
)

// Enforcer runs the corrective sequence against one router.
type Enforcer struct {
	router  adapter.RouterControl
	monitor *Monitor
	name    string
	timeout time.Duration
	deps    Deps
}

// NewEnforcer creates an enforcer. A zero timeout selects DefaultConnectionTimeout.
func NewEnforcer(router adapter.RouterControl, monitor *Monitor, name string, timeout time.Duration, deps Deps) *Enforcer {
	if timeout == 0 {
		timeout = DefaultConnectionTimeout
	}
	return &Enforcer{
		router:  router,
		monitor: monitor,
		name:    name,
		timeout: timeout,
		deps:    deps.withDefaults(),
	}
}

// ForceBandSetting moves the router onto upload, keeping download as the
// allowed band list. upload holds exactly one band; more are refused
// without any router call.
//
// Downlink bands are written but never verified.
func (e *Enforcer) ForceBandSetting(ctx context.Context, upload, download band.Set) (Outcome, error) {
	if len(upload) > 1 {
		return OutcomeUnsupported, &Error{
			Code:   ErrUnsupportedConfiguration,
			Router: e.name,
			Action: "force bands",
			Err:    fmt.Errorf("only a single upload band is supported, got %s", upload),
		}
	}
	if len(upload) == 0 {
		return OutcomeError, &Error{Code: ErrConfig, Router: e.name, Action: "force bands", Err: fmt.Errorf("no upload band")}
	}

	connected, err := e.monitor.WaitForConnection(ctx, e.timeout)
	if err != nil {
		return OutcomeError, err
	}
	if !connected {
		e.deps.Log.Logf("Router %s is not connected yet. Forcing 4G and toggling antennas off/on.", e.name)
		if err := e.force4G(ctx); err != nil {
			return OutcomeError, err
		}
		if err := e.toggleData(ctx); err != nil {
			return OutcomeError, err
		}
		if connected, err = e.monitor.WaitForConnection(ctx, e.timeout); err != nil {
			return OutcomeError, err
		}
		if !connected {
			return OutcomeNoAntenna, &Error{Code: ErrNoAntenna, Router: e.name, Action: "could not acquire any antenna #1"}
		}
	}

	current, _, err := e.monitor.CurrentBand(ctx)
	if err != nil {
		return OutcomeError, err
	}
	if upload.Contains(current) {
		return OutcomeAlreadyCorrect, nil
	}

	// The first write narrows the candidate, the second restores the
	// acceptable list while the firmware keeps the narrowed priority.
	if err := e.setBands(ctx, upload); err != nil {
		return OutcomeError, err
	}
	if err := e.setBands(ctx, download); err != nil {
		return OutcomeError, err
	}

	connected, err = e.monitor.WaitForConnection(ctx, e.timeout)
	if err != nil {
		return OutcomeError, err
	}
	if !connected {
		return OutcomeNoAntenna, &Error{Code: ErrNoAntenna, Router: e.name, Action: "could not acquire any antenna #2"}
	}

	current, _, err = e.monitor.CurrentBand(ctx)
	if err != nil {
		return OutcomeError, err
	}
	if upload.Contains(current) {
		return OutcomeSuccess, nil
	}
	return OutcomeBandMismatch, &Error{
		Code:     ErrBandMismatch,
		Router:   e.name,
		Observed: current,
		Action:   "forcing bands failed",
	}
}

func (e *Enforcer) force4G(ctx context.Context) error {
	e.deps.Log.Logf("%s: setting mode to 4G", e.name)
	return e.do(ctx, ActionSetNetworkMode, func() error {
		return e.router.SetNetworkMode(ctx, adapter.Mode4G)
	})
}

// toggleData cycles the data switch. It does not wait for a signal.
func (e *Enforcer) toggleData(ctx context.Context) error {
	e.deps.Log.Logf("%s: switching data off.", e.name)
	if err := e.do(ctx, ActionDataOff, func() error {
		return e.router.SetDataSwitch(ctx, false)
	}); err != nil {
		return err
	}
	e.deps.Log.Logf("%s: switching data on.", e.name)
	return e.do(ctx, ActionDataOn, func() error {
		return e.router.SetDataSwitch(ctx, true)
	})
}

func (e *Enforcer) setBands(ctx context.Context, bands band.Set) error {
	e.deps.Log.Logf("%s: setting LTE bands to %s", e.name, bands)
	return e.do(ctx, ActionSetBands, func() error {
		return e.router.SetLTEBandList(ctx, bands)
	})
}

// do runs one router command and records it in the log, metrics and events.
func (e *Enforcer) do(ctx context.Context, action string, fn func() error) error {
	start := e.deps.Clock.Now()
	err := fn()
	latency := e.deps.Clock.Now().Sub(start)

	result := "SUCCESS"
	if err != nil {
		err = adapter.NormalizeVendorError(err, action)
		result = adapter.Code(err)
	}
	e.deps.Log.LogAction(ctx, action, e.name, result, latency)
	e.deps.Metrics.ObserveAction(action, result, latency)
	publish(ctx, e.deps, telemetry.NewEvent(telemetry.EventAction, e.name, map[string]interface{}{
		"action":    action,
		"result":    result,
		"latencyMs": latency.Milliseconds(),
	}))

	if err != nil {
		return fmt.Errorf("router %s: %s: %w", e.name, action, err)
	}
	return nil
}

// publish delivers an event; failures only reach the log.
func publish(ctx context.Context, deps Deps, event telemetry.Event) {
	if err := deps.Events.Publish(ctx, event); err != nil {
		deps.Log.Logf("Router %s: event publishing failed: %v", event.Router, err)
	}
}
