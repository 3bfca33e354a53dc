package enforce

import (
	"context"
	"time"

	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/telemetry"
)

// EventLogger writes the operator log.
type EventLogger interface {
	Logf(format string, args ...interface{})
	LogAction(ctx context.Context, action, routerID, result string, latency time.Duration)
}

// Recorder receives enforcement metrics.
type Recorder interface {
	ObserveAction(action, result string, latency time.Duration)
	ObserveAttempt(outcome string)
	SetAttachedBand(id band.ID)
	SetSignalQuality(sinrDB, rsrpDBm float64)
}

// Publisher fans out enforcement events.
type Publisher interface {
	Publish(ctx context.Context, event telemetry.Event) error
}

// Clock abstracts time so polling can be tested without sleeping.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Deps are the collaborators of the enforcement components. Nil fields get
// no-op implementations and the wall clock.
type Deps struct {
	Log     EventLogger
	Metrics Recorder
	Events  Publisher
	Clock   Clock
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = nopLogger{}
	}
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Events == nil {
		d.Events = telemetry.Nop{}
	}
	if d.Clock == nil {
		d.Clock = wallClock{}
	}
	return d
}

type nopLogger struct{}

func (nopLogger) Logf(format string, args ...interface{}) {}
func (nopLogger) LogAction(ctx context.Context, action, routerID, result string, latency time.Duration) {
}

type nopRecorder struct{}

func (nopRecorder) ObserveAction(action, result string, latency time.Duration) {}
func (nopRecorder) ObserveAttempt(outcome string)                              {}
func (nopRecorder) SetAttachedBand(id band.ID)                                 {}
func (nopRecorder) SetSignalQuality(sinrDB, rsrpDBm float64)                   {}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
