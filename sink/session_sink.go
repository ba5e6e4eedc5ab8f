// Package sink holds EventSink implementations: the per-connection
// buffered sink the transport drains, and local projections.
package sink

import (
	"chat-core/domain/event"
	"context"
)

// SessionSink buffers outbound events for one connection. The fanout
// worker feeds it; the connection's write pump drains Events.
type SessionSink struct {
	Events chan event.Event
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.Event, bufferSize)}
}

// Consume is called by fanout. A full buffer means the client is not
// keeping up; once the delivery context expires the event is lost and
// the error lets the caller count the drop.
func (s *SessionSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
