// Package domain contains core concepts of the chat system:
// sessions, rooms, messages, conversations and their invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"github.com/google/uuid"
)

type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Session is one accepted connection. The display name stays empty until
// the client introduces itself; an unnamed session belongs to no room and
// cannot send messages.
type Session struct {
	ID   SessionID
	Name string
	Room string
}

func (s Session) Named() bool {
	return s.Name != ""
}
