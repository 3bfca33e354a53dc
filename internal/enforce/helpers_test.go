package enforce

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/radio-control/bandlock/internal/adapter/fake"
	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/telemetry"
)

// fakeClock advances only when slept on.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

// memLog records log lines and actions.
type memLog struct {
	mu      sync.Mutex
	lines   []string
	actions []string
}

func (l *memLog) Logf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *memLog) LogAction(ctx context.Context, action, routerID, result string, latency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, action+"="+result)
}

func (l *memLog) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

// memRecorder records metrics calls.
type memRecorder struct {
	mu       sync.Mutex
	actions  map[string]int
	attempts []string
	band     band.ID
	sinr     float64
}

func newMemRecorder() *memRecorder {
	return &memRecorder{actions: make(map[string]int)}
}

func (r *memRecorder) ObserveAction(action, result string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[action+"="+result]++
}

func (r *memRecorder) ObserveAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, outcome)
}

func (r *memRecorder) SetAttachedBand(id band.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.band = id
}

func (r *memRecorder) SetSignalQuality(sinrDB, rsrpDBm float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinr = sinrDB
}

// memEvents records published events.
type memEvents struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (e *memEvents) Publish(ctx context.Context, event telemetry.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *memEvents) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

func (e *memEvents) ofType(eventType string) []telemetry.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []telemetry.Event
	for _, ev := range e.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	router  *fake.Router
	clock   *fakeClock
	log     *memLog
	metrics *memRecorder
	events  *memEvents
}

func newHarness(attached band.ID) *harness {
	return &harness{
		router:  fake.New("home", attached),
		clock:   newFakeClock(),
		log:     &memLog{},
		metrics: newMemRecorder(),
		events:  &memEvents{},
	}
}

func (h *harness) deps() Deps {
	return Deps{Log: h.log, Metrics: h.metrics, Events: h.events, Clock: h.clock}
}

func (h *harness) enforcer(timeout time.Duration) *Enforcer {
	monitor := NewMonitor(h.router, "home", h.deps())
	return NewEnforcer(h.router, monitor, "home", timeout, h.deps())
}

// narrowThenAttach models the B715 band API: a single-band write selects
// the candidate and the following wider write makes the modem attach to it.
func narrowThenAttach() func(r *fake.Router, bands band.Set) {
	var candidate band.ID
	return func(r *fake.Router, bands band.Set) {
		if len(bands) == 1 {
			candidate = bands[0]
			return
		}
		if bands.Contains(candidate) {
			r.SetAttached(candidate)
		}
	}
}

func callStrings(t *testing.T, calls []fake.Call) []string {
	t.Helper()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}
