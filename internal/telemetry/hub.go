package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Hub numbers events and fans them out to sinks.
//
// Events get a run-wide sequence number before they reach any sink. A failing
// sink does not stop delivery to the others.
type Hub struct {
	mu      sync.Mutex
	runID   string
	sinks   []Publisher
	nextSeq int64
	closed  bool
}

// NewHub creates a hub tagging events with runID.
func NewHub(runID string, sinks ...Publisher) *Hub {
	return &Hub{
		runID:   runID,
		sinks:   sinks,
		nextSeq: 1,
	}
}

// Publish numbers the event and delivers it to every sink.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return fmt.Errorf("telemetry hub is closed")
	}
	if event.RunID == "" {
		event.RunID = h.runID
	}
	event.Seq = h.nextSeq
	h.nextSeq++
	sinks := h.sinks
	h.mu.Unlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publish %s event %d: %w", event.Type, event.Seq, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes sinks that hold resources. Further publishing fails.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	var errs []error
	for _, sink := range h.sinks {
		if closer, ok := sink.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
