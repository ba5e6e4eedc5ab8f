package internal

import (
	"chat-core/observability"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestHealthServer_Reports_Stats_And_Scopes(t *testing.T) {
	req := require.New(t)
	stats := observability.NewStats(prometheus.NewRegistry())
	stats.ConnectionOpened()
	stats.MessageStored("room")

	scopes := func() map[string]observability.ScopeStat {
		return map[string]observability.ScopeStat{
			"room:general": {Users: 2, Messages: 5},
		}
	}

	server := NewHealthServer(slog.Default(), 0, stats, scopes)
	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var payload healthPayload
	req.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	req.Equal("ok", payload.Status)
	req.EqualValues(1, payload.Stats.Connections)
	req.EqualValues(1, payload.Stats.MessagesTotal)
	req.Equal(2, payload.Scopes["room:general"].Users)
}

func TestHealthServer_Exposes_Prometheus_Metrics(t *testing.T) {
	req := require.New(t)
	stats := observability.NewStats(prometheus.NewRegistry())

	server := NewHealthServer(slog.Default(), 0, stats, func() map[string]observability.ScopeStat {
		return nil
	})
	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}
