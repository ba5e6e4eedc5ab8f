package ws

import (
	"chat-core/contract"
	"chat-core/domain"
	"chat-core/sink"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Core is what the transport needs from the coordination core: accept a
// connection and accept inbound events. Satisfied by runtime.Engine.
type Core interface {
	Connect(sink contract.EventSink) domain.SessionID
	Process(cmd domain.Command)
}

type Server struct {
	log            *slog.Logger
	core           Core
	upgrader       websocket.Upgrader
	sinkBufferSize int
	maxMessageSize int64
}

func NewServer(log *slog.Logger, core Core, sinkBufferSize int, maxMessageSize int64) *Server {
	return &Server{
		log:  log,
		core: core,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy is a deployment concern handled upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sinkBufferSize: sinkBufferSize,
		maxMessageSize: maxMessageSize,
	}
}

// Handler exposes the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleConnection)
	return mux
}

// handleConnection upgrades the request, registers the session with the
// core, and blocks on the read pump until the client disconnects.
// Cleanup is ensured via the read pump's deferred disconnect, so the
// registry never leaks a dead session.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	// Voice payloads are the largest frames; anything bigger than the
	// configured limit kills the connection.
	wsConn.SetReadLimit(s.maxMessageSize)

	sessionSink := sink.NewSessionSink(s.sinkBufferSize)
	id := s.core.Connect(sessionSink)
	s.log.Info("Connection accepted", "session", id, "remote", r.RemoteAddr)

	c := &connection{
		ws:      wsConn,
		core:    s.core,
		session: id,
		sink:    sessionSink,
		log:     s.log,
	}

	go c.writePump(r.Context())
	c.readPump()
	s.log.Info("Connection closed", "session", id, "remote", r.RemoteAddr)
}
