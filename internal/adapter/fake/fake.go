// Package fake provides a scripted in-memory router for testing the
// enforcement core without HTTP.
package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/band"
)

// Operation names used for call recording and error injection.
const (
	OpLogin           = "Login"
	OpLogout          = "Logout"
	OpSignalTelemetry = "SignalTelemetry"
	OpSetNetworkMode  = "SetNetworkMode"
	OpSetDataSwitch   = "SetDataSwitch"
	OpSetLTEBandList  = "SetLTEBandList"
)

// Call is one recorded router operation.
type Call struct {
	Op  string
	Arg string
}

func (c Call) String() string {
	if c.Arg == "" {
		return c.Op
	}
	return c.Op + "(" + c.Arg + ")"
}

// Router implements adapter.RouterControl in memory.
//
// The attached band is either set directly or scripted: every signal read
// consumes the next scripted attachment, and the last one repeats.
type Router struct {
	adapter.AdapterBase

	// Hooks run after the operation succeeded, without the lock held.
	OnSetNetworkMode func(r *Router, mode adapter.NetworkMode)
	OnSetDataSwitch  func(r *Router, on bool)
	OnSetLTEBandList func(r *Router, bands band.Set)

	mu sync.Mutex

	credentials adapter.Credentials
	loggedIn    bool

	attached band.ID
	script   []band.ID
	omitBand bool

	mode     adapter.NetworkMode
	dataOn   bool
	bandList band.Set

	failures map[string]failure
	calls    []Call
}

var _ adapter.RouterControl = (*Router)(nil)

// New creates a router attached to the given band (band.None for detached)
// that accepts admin/admin.
func New(routerID string, attached band.ID) *Router {
	return &Router{
		AdapterBase: adapter.AdapterBase{
			RouterID: routerID,
			Model:    "Fake-Router",
		},
		credentials: adapter.Credentials{Username: "admin", Password: "admin"},
		attached:    attached,
		mode:        adapter.ModeAuto,
		dataOn:      true,
		failures:    make(map[string]failure),
	}
}

// Login checks the credentials against the configured pair.
func (r *Router) Login(ctx context.Context, creds adapter.Credentials) error {
	if err := r.begin(ctx, OpLogin, creds.Username); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if creds != r.credentials {
		return &adapter.VendorError{Code: adapter.ErrUnauthorized, Original: fmt.Errorf("wrong username or password")}
	}
	r.loggedIn = true
	return nil
}

// Logout closes the session.
func (r *Router) Logout(ctx context.Context) error {
	if err := r.begin(ctx, OpLogout, ""); err != nil {
		return err
	}
	r.mu.Lock()
	r.loggedIn = false
	r.mu.Unlock()
	return nil
}

// SignalTelemetry renders a HiLink-style signal document for the current attachment.
func (r *Router) SignalTelemetry(ctx context.Context) ([]byte, error) {
	if err := r.begin(ctx, OpSignalTelemetry, ""); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.script) > 0 {
		r.attached = r.script[0]
		if len(r.script) > 1 {
			r.script = r.script[1:]
		}
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<response><pci>256</pci><cell_id>20867073</cell_id>")
	if r.attached.IsNone() {
		b.WriteString("<rsrq></rsrq><rsrp></rsrp><rssi></rssi><sinr></sinr>")
	} else {
		b.WriteString("<rsrq>-9dB</rsrq><rsrp>-97dBm</rsrp><rssi>-69dBm</rssi><sinr>12dB</sinr>")
	}
	b.WriteString("<mode>7</mode>")
	if !r.omitBand {
		fmt.Fprintf(&b, "<band>%s</band>", r.attached.Numeric())
	}
	b.WriteString("</response>")
	return []byte(b.String()), nil
}

// SetNetworkMode records the mode.
func (r *Router) SetNetworkMode(ctx context.Context, mode adapter.NetworkMode) error {
	if err := r.begin(ctx, OpSetNetworkMode, string(mode)); err != nil {
		return err
	}
	r.mu.Lock()
	r.mode = mode
	hook := r.OnSetNetworkMode
	r.mu.Unlock()

	if hook != nil {
		hook(r, mode)
	}
	return nil
}

// SetDataSwitch records the switch position.
func (r *Router) SetDataSwitch(ctx context.Context, on bool) error {
	if err := r.begin(ctx, OpSetDataSwitch, fmt.Sprint(on)); err != nil {
		return err
	}
	r.mu.Lock()
	r.dataOn = on
	hook := r.OnSetDataSwitch
	r.mu.Unlock()

	if hook != nil {
		hook(r, on)
	}
	return nil
}

// SetLTEBandList records the band list. Bands outside the LTE mask fail
// with INVALID_RANGE like the real firmware.
func (r *Router) SetLTEBandList(ctx context.Context, bands band.Set) error {
	if err := r.begin(ctx, OpSetLTEBandList, strings.Join(bands.Strings(), ",")); err != nil {
		return err
	}
	if _, err := bands.MaskHex(); err != nil {
		return &adapter.VendorError{Code: adapter.ErrInvalidRange, Original: err, Details: bands.Strings()}
	}

	r.mu.Lock()
	r.bandList = append(band.Set(nil), bands...)
	hook := r.OnSetLTEBandList
	r.mu.Unlock()

	if hook != nil {
		hook(r, bands)
	}
	return nil
}

// begin records the call and applies context cancellation and injected failures.
func (r *Router) begin(ctx context.Context, op, arg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Arg: arg})

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if f, ok := r.failures[op]; ok {
		if f.skip > 0 {
			f.skip--
			r.failures[op] = f
			return nil
		}
		return f.err
	}
	return nil
}

// Helper methods for testing

// SetAttached sets the attached band and drops any script.
func (r *Router) SetAttached(id band.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = id
	r.script = nil
}

// Script queues the attachments returned by successive signal reads.
func (r *Router) Script(ids ...band.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script = append([]band.ID(nil), ids...)
}

// SetOmitBand makes the signal document lack the band element.
func (r *Router) SetOmitBand(omit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.omitBand = omit
}

// SetCredentials changes the accepted login.
func (r *Router) SetCredentials(creds adapter.Credentials) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credentials = creds
}

// failure is an injected error that starts after skip more successful calls.
type failure struct {
	skip int
	err  error
}

// FailOn makes op fail with err; a nil err clears the failure.
func (r *Router) FailOn(op string, err error) {
	r.FailAfter(op, 0, err)
}

// FailAfter lets op succeed n more times, then fail with err on every call.
func (r *Router) FailAfter(op string, n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, op)
		return
	}
	r.failures[op] = failure{skip: n, err: err}
}

// Attached returns the current attachment.
func (r *Router) Attached() band.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attached
}

// Mode returns the last network mode written.
func (r *Router) Mode() adapter.NetworkMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// DataOn returns the data switch position.
func (r *Router) DataOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dataOn
}

// BandList returns the last band list written.
func (r *Router) BandList() band.Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(band.Set(nil), r.bandList...)
}

// LoggedIn reports whether a session is open.
func (r *Router) LoggedIn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loggedIn
}

// Calls returns the recorded operations in order.
func (r *Router) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns how many times op was called.
func (r *Router) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (r *Router) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
