package enforce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/telemetry"
)

// DefaultInitialProbeTimeout is the short wait before the first band check.
const DefaultInitialProbeTimeout = time.Second

// Settings is the immutable configuration of one enforcement run.
type Settings struct {
	RouterName  string
	Credentials adapter.Credentials

	// Upload holds the single desired upload band.
	Upload band.Set
	// Download is the full allowed band list written after Upload.
	Download band.Set

	ConnectionTimeout   time.Duration
	InitialProbeTimeout time.Duration

	Retry RetryPolicy
}

func (s Settings) validateTimeouts() error {
	for _, t := range []struct {
		what  string
		value time.Duration
	}{
		{"connection timeout", s.ConnectionTimeout},
		{"initial probe timeout", s.InitialProbeTimeout},
	} {
		if t.value < 0 || t.value > MaxWaitTimeout {
			return fmt.Errorf("%s %v outside [0, %v]", t.what, t.value, MaxWaitTimeout)
		}
	}
	return nil
}

// Result summarizes a driver run.
type Result struct {
	Outcome  Outcome
	Attempts int
	Band     band.ID
}

// Driver is the outer enforcement loop. It owns the router session for
// the whole run and is the only component that decides to retry.
type Driver struct {
	router   adapter.RouterControl
	monitor  *Monitor
	enforcer *Enforcer
	settings Settings
	deps     Deps
}

// NewDriver wires a monitor and an enforcer for router.
func NewDriver(router adapter.RouterControl, settings Settings, deps Deps) *Driver {
	deps = deps.withDefaults()
	if settings.InitialProbeTimeout == 0 {
		settings.InitialProbeTimeout = DefaultInitialProbeTimeout
	}
	monitor := NewMonitor(router, settings.RouterName, deps)
	return &Driver{
		router:   router,
		monitor:  monitor,
		enforcer: NewEnforcer(router, monitor, settings.RouterName, settings.ConnectionTimeout, deps),
		settings: settings,
		deps:     deps,
	}
}

// Monitor returns the driver's connection monitor.
func (d *Driver) Monitor() *Monitor {
	return d.monitor
}

// Run logs in, enforces the desired upload band and logs out.
//
// It returns an error wrapping ErrAttemptsExhausted when the retry policy
// gives up, and the context error when ctx ends first.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	name := d.settings.RouterName
	log := d.deps.Log
	if len(d.settings.Upload) == 0 {
		return Result{}, &Error{Code: ErrConfig, Router: name, Action: "start", Err: fmt.Errorf("no upload band")}
	}
	if err := d.settings.Retry.Validate(); err != nil {
		return Result{}, &Error{Code: ErrConfig, Router: name, Action: "start", Err: err}
	}
	if err := d.settings.validateTimeouts(); err != nil {
		return Result{}, &Error{Code: ErrConfig, Router: name, Action: "start", Err: err}
	}
	desired := d.settings.Upload.Primary()

	log.Logf("Router %s: Starting monitoring.", name)
	log.Logf("Router %s: retry policy: %s.", name, d.settings.Retry)
	defer log.Logf("Router %s: Stopping.", name)

	if err := d.router.Login(ctx, d.settings.Credentials); err != nil {
		err = adapter.NormalizeVendorError(err, "login")
		log.Logf("Router %s: login failed: %v", name, err)
		return Result{}, fmt.Errorf("router %s: login: %w", name, err)
	}
	defer d.logout()

	connected, err := d.monitor.WaitForConnection(ctx, d.settings.InitialProbeTimeout)
	if err != nil {
		log.Logf("Router %s: initial probe failed: %v", name, err)
	} else if !connected {
		log.Logf("Router %s is not connected yet", name)
	}

	if current, _, err := d.monitor.CurrentBand(ctx); err != nil {
		log.Logf("Router %s: initial band check failed: %v", name, err)
	} else if current == desired {
		log.Logf("Router %s is properly set up, exiting.", name)
		d.finish(ctx, OutcomeAlreadyCorrect, 0, current)
		return Result{Outcome: OutcomeAlreadyCorrect, Band: current}, nil
	}

	attempts := 0
	operation := func() (Outcome, error) {
		attempts++
		outcome, err := d.attempt(ctx, attempts, desired)
		d.deps.Metrics.ObserveAttempt(outcome.String())
		publish(ctx, d.deps, telemetry.NewEvent(telemetry.EventAttempt, name, map[string]interface{}{
			"attempt": attempts,
			"outcome": outcome.String(),
			"code":    Code(err),
		}))
		return outcome, err
	}
	notify := func(err error, next time.Duration) {
		if errors.Is(err, ErrNoAntenna) {
			log.Logf("Router %s: Attempt to force bands failed: no antenna signal. Consider setting LTE bands to auto in the web interface", name)
		} else {
			log.Logf("%v, retrying...", err)
		}
		if next > 0 {
			log.Logf("Router %s: next attempt in %v", name, next)
		}
		if !errors.Is(err, ErrBandMismatch) {
			code := Code(err)
			if code == "" {
				code = adapter.Code(err)
			}
			publish(ctx, d.deps, telemetry.NewEvent(telemetry.EventFault, name, map[string]interface{}{
				"attempt":       attempts,
				"code":          code,
				"error":         err.Error(),
				"nextAttemptIn": next.String(),
			}))
		}
	}

	outcome, err := backoff.Retry(ctx, operation, d.settings.Retry.options(notify)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Logf("Router %s: stopped after %d attempts: %v", name, attempts, ctxErr)
			return Result{Outcome: outcome, Attempts: attempts}, ctxErr
		}
		log.Logf("Router %s: giving up after %d attempts: %v", name, attempts, err)
		d.finish(ctx, outcome, attempts, band.None)
		return Result{Outcome: outcome, Attempts: attempts}, &Error{
			Code:   ErrAttemptsExhausted,
			Router: name,
			Action: fmt.Sprintf("after %d attempts", attempts),
			Err:    err,
		}
	}

	current, _, err := d.monitor.CurrentBand(ctx)
	if err != nil {
		log.Logf("Router %s: final band check failed: %v", name, err)
		// The last attempt already observed the desired band.
		current = desired
	} else {
		log.Logf("Router %s is properly set up.", name)
	}
	d.finish(ctx, outcome, attempts, current)
	return Result{Outcome: outcome, Attempts: attempts, Band: current}, nil
}

// attempt re-reads the band and, unless the router converged on its own,
// runs one corrective sequence.
func (d *Driver) attempt(ctx context.Context, n int, desired band.ID) (Outcome, error) {
	name := d.settings.RouterName
	current, attached, err := d.monitor.CurrentBand(ctx)
	if err != nil {
		return OutcomeError, err
	}
	if current == desired {
		return OutcomeAlreadyCorrect, nil
	}

	observed := "no band"
	if attached {
		observed = current.String()
	}
	d.deps.Log.Logf("Router %s is using %s as upload band. Forcing %s instead (attempt %d).", name, observed, desired, n)

	return d.enforcer.ForceBandSetting(ctx, d.settings.Upload, d.settings.Download)
}

func (d *Driver) finish(ctx context.Context, outcome Outcome, attempts int, current band.ID) {
	publish(ctx, d.deps, telemetry.NewEvent(telemetry.EventOutcome, d.settings.RouterName, map[string]interface{}{
		"outcome":  outcome.String(),
		"attempts": attempts,
		"band":     current.String(),
	}))
}

// logout releases the session even when the run context is already done.
func (d *Driver) logout() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.router.Logout(ctx); err != nil {
		d.deps.Log.Logf("Router %s: logout failed: %v", d.settings.RouterName, err)
	}
}
