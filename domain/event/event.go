// Package event defines the outbound events the dispatcher produces and
// the audience each one is addressed to. The transport layer only ever
// sees resolved session ids, never room internals.
package event

import (
	"chat-core/domain"
)

// Event is one outbound payload. Name returns the wire-level event name.
type Event interface {
	Name() string
}

// Audience is the resolved recipient set of one outbound event. The
// dispatcher expands room membership into concrete session ids while it
// still holds the state lock, so fanout needs no domain knowledge.
type Audience struct {
	Everyone bool
	Sessions []domain.SessionID
	Except   []domain.SessionID
}

func ToEveryone(except ...domain.SessionID) Audience {
	return Audience{Everyone: true, Except: except}
}

func ToSessions(ids ...domain.SessionID) Audience {
	return Audience{Sessions: ids}
}

func (a Audience) Excludes(id domain.SessionID) bool {
	for _, ex := range a.Except {
		if ex == id {
			return true
		}
	}
	return false
}

// Outbound pairs an event with its audience.
type Outbound struct {
	Audience Audience
	Event    Event
}
