package workers

import (
	"chat-core/contract"
	"chat-core/observability"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*ReporterWorker)(nil)

// ReporterWorker logs a metrics line on an interval so an operator can
// follow the system without scraping /metrics.
type ReporterWorker struct {
	log      *slog.Logger
	stats    *observability.Stats
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, stats *observability.Stats, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, stats: stats, interval: interval}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report()
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *ReporterWorker) report() {
	snap := w.stats.GetLatest()
	w.log.Info("Stats",
		"uptime_s", snap.UptimeSeconds,
		"connections", snap.Connections,
		"users", snap.Users,
		"messages", snap.MessagesTotal,
		"delivered", snap.EventsDelivered,
		"dropped", snap.EventsDropped,
		"alloc_mb", snap.AllocMemMb,
	)
}
