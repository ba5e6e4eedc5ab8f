package runtime

import (
	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/observability"
	"chat-core/runtime/workers"
	"context"
	"log/slog"
	"time"
)

// Engine runs the delivery pipeline around the dispatcher: transport
// handlers call Process synchronously (which keeps commands from one
// connection in FIFO order), and the resulting outbound events are
// published to a channel drained by the supervised fanout worker.
type Engine struct {
	log        *slog.Logger
	dispatcher contract.IDispatcher
	registry   contract.IRegistry
	supervisor contract.ISupervisor
	outbound   chan event.Outbound
	stats      *observability.Stats

	sinkTimeout    time.Duration
	reportInterval time.Duration
}

func NewEngine(log *slog.Logger, dispatcher contract.IDispatcher,
	registry contract.IRegistry, supervisor contract.ISupervisor,
	stats *observability.Stats, bufferSize int,
	sinkTimeout, reportInterval time.Duration) *Engine {
	return &Engine{
		log:            log,
		dispatcher:     dispatcher,
		registry:       registry,
		supervisor:     supervisor,
		outbound:       make(chan event.Outbound, bufferSize),
		stats:          stats,
		sinkTimeout:    sinkTimeout,
		reportInterval: reportInterval,
	}
}

// Start registers the pipeline workers and runs the supervisor until the
// context is canceled.
func (e *Engine) Start(ctx context.Context) {
	e.supervisor.Add(workers.NewEventFanout(e.log, e.registry, e.outbound, e.stats, e.sinkTimeout))
	if e.reportInterval > 0 {
		e.supervisor.Add(workers.NewReporterWorker(e.log, e.stats, e.reportInterval))
	}

	e.log.Info("Starting engine and all supervised workers")
	e.supervisor.Run(ctx)
}

// Connect registers a new connection's sink with the dispatcher and
// returns its session id.
func (e *Engine) Connect(sink contract.EventSink) domain.SessionID {
	return e.dispatcher.Connect(sink)
}

// Process reduces one command and schedules its outbound events for
// delivery. It returns once the events are queued, never once they are
// delivered.
func (e *Engine) Process(cmd domain.Command) {
	for _, out := range e.dispatcher.Handle(cmd) {
		e.Publish(out)
	}
}

// Publish enqueues one outbound event, dropping it when the pipeline is
// saturated rather than blocking a connection handler.
func (e *Engine) Publish(out event.Outbound) {
	select {
	case e.outbound <- out:
	default:
		e.log.Warn("Outbound channel full, dropping event", "event", out.Event.Name())
		if e.stats != nil {
			e.stats.EventDropped()
		}
	}
}

// Stop initiates a graceful shutdown by canceling the supervised
// context; workers drain and exit on their own.
func (e *Engine) Stop() {
	e.log.Info("Requesting engine shutdown")
	e.supervisor.Stop()
}
