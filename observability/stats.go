// Package observability aggregates runtime counters for the health
// surface and exports them as Prometheus metrics.
package observability

import (
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/process"
)

// ScopeStat is one scope's live footprint: how many users it holds and
// how many messages its ledger retains.
type ScopeStat struct {
	Users    int `json:"users"`
	Messages int `json:"messages"`
}

// Snapshot aggregates all metrics for the health endpoint.
type Snapshot struct {
	UptimeSeconds   int64   `json:"uptime_seconds"`
	Connections     int64   `json:"connections"`
	Users           int64   `json:"users"`
	MessagesTotal   uint64  `json:"messages_total"`
	EventsDelivered uint64  `json:"events_delivered"`
	EventsDropped   uint64  `json:"events_dropped"`
	AllocMemMb      uint64  `json:"alloc_mem_mb"`
	NumGC           uint32  `json:"num_gc"`
	RSSBytes        uint64  `json:"rss_bytes"`
	CPUPercent      float64 `json:"cpu_percent"`
}

// Stats tracks live counters with atomics (cheap enough for the hot
// path) and mirrors them into Prometheus collectors.
type Stats struct {
	started time.Time
	proc    *process.Process

	connections     atomic.Int64
	users           atomic.Int64
	messagesTotal   atomic.Uint64
	eventsDelivered atomic.Uint64
	eventsDropped   atomic.Uint64

	promConnections prometheus.Gauge
	promUsers       prometheus.Gauge
	promMessages    *prometheus.CounterVec
	promDelivered   prometheus.Counter
	promDropped     prometheus.Counter
}

func NewStats(reg prometheus.Registerer) *Stats {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	s := &Stats{
		started: time.Now(),
		promConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections",
			Help: "Currently open client connections.",
		}),
		promUsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_users",
			Help: "Sessions that completed the new-user handshake.",
		}),
		promMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Messages stored, by scope kind.",
		}, []string{"scope"}),
		promDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_events_delivered_total",
			Help: "Outbound events handed to a session sink.",
		}),
		promDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_events_dropped_total",
			Help: "Outbound events dropped on a full or dead sink.",
		}),
	}

	// Self stats are best effort; the snapshot simply omits them when
	// the process handle is unavailable.
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}
	return s
}

func (s *Stats) ConnectionOpened() {
	s.connections.Add(1)
	s.promConnections.Inc()
}

func (s *Stats) ConnectionClosed() {
	s.connections.Add(-1)
	s.promConnections.Dec()
}

func (s *Stats) UserJoined() {
	s.users.Add(1)
	s.promUsers.Inc()
}

func (s *Stats) UserLeft() {
	s.users.Add(-1)
	s.promUsers.Dec()
}

func (s *Stats) MessageStored(scopeKind string) {
	s.messagesTotal.Add(1)
	s.promMessages.WithLabelValues(scopeKind).Inc()
}

func (s *Stats) EventDelivered() {
	s.eventsDelivered.Add(1)
	s.promDelivered.Inc()
}

func (s *Stats) EventDropped() {
	s.eventsDropped.Add(1)
	s.promDropped.Inc()
}

// GetLatest builds a point-in-time snapshot including Go heap figures
// and, when available, process RSS and CPU from the OS.
func (s *Stats) GetLatest() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snap := Snapshot{
		UptimeSeconds:   int64(time.Since(s.started).Seconds()),
		Connections:     s.connections.Load(),
		Users:           s.users.Load(),
		MessagesTotal:   s.messagesTotal.Load(),
		EventsDelivered: s.eventsDelivered.Load(),
		EventsDropped:   s.eventsDropped.Load(),
		AllocMemMb:      mem.Alloc / 1024 / 1024,
		NumGC:           mem.NumGC,
	}

	if s.proc != nil {
		if memInfo, err := s.proc.MemoryInfo(); err == nil {
			snap.RSSBytes = memInfo.RSS
		}
		if cpu, err := s.proc.CPUPercent(); err == nil {
			snap.CPUPercent = cpu
		}
	}
	return snap
}
