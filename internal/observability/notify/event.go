// Package notify defines the notification events rentd emits and the sink
// contract destinations implement.
package notify

import (
	"context"
	"time"
)

// Event kinds recognised by downstream sinks.
const (
	KindSyncFailure  = "sync_failure"
	KindLeadAssigned = "lead_assigned"
)

// Event is the canonical notification payload.
type Event struct {
	Kind       string
	Title      string
	Error      string
	ErrorClass string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming notification events.
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, event Event) error

// Send implements the Sink interface.
func (f SinkFunc) Send(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}
