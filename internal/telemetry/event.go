package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventAttempt = "attempt"
	EventAction  = "action"
	EventOutcome = "outcome"
	EventFault   = "fault"
)

// Event is one enforcement event.
type Event struct {
	ID     string                 `json:"id"`
	Seq    int64                  `json:"seq,omitempty"`
	Type   string                 `json:"type"`
	Router string                 `json:"router,omitempty"`
	RunID  string                 `json:"runId,omitempty"`
	Time   time.Time              `json:"ts"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current UTC time.
func NewEvent(eventType, router string, data map[string]interface{}) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   eventType,
		Router: router,
		Time:   time.Now().UTC(),
		Data:   data,
	}
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(ctx context.Context, event Event) error { return nil }
