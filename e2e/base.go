// Package e2e runs full-stack scenarios against an in-process server:
// real engine, real fanout worker, real WebSocket transport.
package e2e

import (
	"chat-core/observability"
	"chat-core/runtime"
	"chat-core/runtime/workers"
	"chat-core/transport/ws"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type BaseSuite struct {
	suite.Suite
	Config Config

	server *httptest.Server
	cancel context.CancelFunc
}

func (s *BaseSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	s.Config = cfg

	log := slog.Default()
	registry := runtime.NewRegistry()
	stats := observability.NewStats(prometheus.NewRegistry())
	dispatcher := runtime.NewDispatcher(log, registry,
		[]string{"general", "random"}, 100, 50, nil, stats)
	engine := runtime.NewEngine(log, dispatcher, registry,
		workers.NewSupervisor(log), stats,
		cfg.BufferSize, cfg.SinkTimeout, 0)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go engine.Start(ctx)

	wsServer := ws.NewServer(log, engine, cfg.ConnectionBufferSize, 1<<20)
	s.server = httptest.NewServer(wsServer.Handler())
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Step prints a colored scenario header, matching the operator tooling.
func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("--- %s ---", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// client is one connected WebSocket participant in a scenario.
type client struct {
	suite *BaseSuite
	conn  *websocket.Conn
}

// Dial opens a WebSocket connection to the in-process server.
func (s *BaseSuite) Dial() *client {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	return &client{suite: s, conn: conn}
}

func (c *client) Close() {
	_ = c.conn.Close()
}

func (c *client) Send(event string, data any) {
	payload, err := json.Marshal(data)
	c.suite.Require().NoError(err)
	c.suite.Require().NoError(c.conn.WriteJSON(envelope{Event: event, Data: payload}))
}

// WaitFor reads frames until the named event arrives, skipping everything
// else, and decodes its payload into out (when non-nil).
func (c *client) WaitFor(name string, out any) {
	deadline := time.Now().Add(c.suite.Config.ReadTimeout)
	for {
		c.suite.Require().NoError(c.conn.SetReadDeadline(deadline))
		_, raw, err := c.conn.ReadMessage()
		c.suite.Require().NoError(err, "timed out waiting for %q", name)

		var env envelope
		c.suite.Require().NoError(json.Unmarshal(raw, &env))
		if env.Event != name {
			continue
		}
		if out != nil {
			c.suite.Require().NoError(json.Unmarshal(env.Data, out))
		}
		return
	}
}
