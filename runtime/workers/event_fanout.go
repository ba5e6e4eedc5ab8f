package workers

import (
	"chat-core/contract"
	"chat-core/domain/event"
	"chat-core/observability"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout drains the outbound event channel and pushes each event to
// the sinks its audience resolves to.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering across sessions, durability, or retries. A sink that cannot
// take an event within the timeout loses it; the core never waits for a
// slow client.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	outbound    chan event.Outbound
	stats       *observability.Stats
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	outbound chan event.Outbound, stats *observability.Stats,
	sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		outbound:    outbound,
		stats:       stats,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case out, ok := <-w.outbound:
			if !ok {
				return nil
			}
			w.Fanout(ctx, out)
		}
	}
}

// Fanout delivers one outbound event to every sink in its audience.
func (w *EventFanout) Fanout(ctx context.Context, out event.Outbound) {
	for _, sink := range w.registry.SinksFor(out.Audience) {
		deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		err := sink.Consume(deliveryCtx, out.Event)
		cancel()

		if err != nil {
			w.log.Debug("Event lost on sink", "event", out.Event.Name(), "error", err)
			if w.stats != nil {
				w.stats.EventDropped()
			}
			continue
		}
		if w.stats != nil {
			w.stats.EventDelivered()
		}
	}
}
