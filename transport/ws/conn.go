package ws

import (
	"chat-core/domain"
	"chat-core/sink"
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// connection binds one upgraded WebSocket to one core session: the read
// pump feeds commands in, the write pump drains the session sink out.
type connection struct {
	ws      *websocket.Conn
	core    Core
	session domain.SessionID
	sink    *sink.SessionSink
	log     *slog.Logger
}

// readPump decodes inbound frames into commands until the client goes
// away. Frames that fail to decode are dropped, not fatal: the protocol
// treats bad input as a no-op.
func (c *connection) readPump() {
	defer func() {
		c.core.Process(domain.Disconnect{From: c.session})
		_ = c.ws.Close()
	}()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("Unexpected close", "session", c.session, "error", err)
			}
			return
		}

		cmd, err := DecodeCommand(c.session, raw)
		if err != nil {
			c.log.Debug("Dropped inbound frame", "session", c.session, "error", err)
			continue
		}
		c.core.Process(cmd)
	}
}

// writePump pushes outbound events and keepalive pings until the
// connection context ends or a write fails.
func (c *connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(writeWait))
			return

		case evt := <-c.sink.Events:
			frame, err := EncodeEvent(evt)
			if err != nil {
				c.log.Error("Failed to encode event", "event", evt.Name(), "error", err)
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
