// Package internal hosts the operational HTTP surface: health JSON and
// Prometheus metrics. It is a collaborator of the core, not part of it.
package internal

import (
	"chat-core/observability"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthPayload struct {
	Status string                             `json:"status"`
	Stats  observability.Snapshot             `json:"stats"`
	Scopes map[string]observability.ScopeStat `json:"scopes"`
}

// ScopeStatsProvider reports per-scope user/message counts; satisfied by
// the dispatcher.
type ScopeStatsProvider func() map[string]observability.ScopeStat

// NewHealthServer builds the operational server. The caller owns its
// lifecycle (ListenAndServe / Shutdown).
func NewHealthServer(log *slog.Logger, port int, stats *observability.Stats, scopes ScopeStatsProvider) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		payload := healthPayload{
			Status: "ok",
			Stats:  stats.GetLatest(),
			Scopes: scopes(),
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error("Failed to write health payload", "error", err)
		}
	})

	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
