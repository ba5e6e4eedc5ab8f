package domain

import (
	"chat-core/errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScopeKey identifies a conversation boundary: a named room or a
// canonical two-party DM pair. Each scope owns its own history and
// annotation state.
type ScopeKey string

func RoomKey(room string) ScopeKey {
	return ScopeKey("room:" + room)
}

// DMKey canonicalizes an unordered pair of display names, so (A,B) and
// (B,A) resolve to the same conversation.
func DMKey(a, b string) ScopeKey {
	pair := []string{a, b}
	sort.Strings(pair)
	return ScopeKey("dm:" + strings.Join(pair, ":"))
}

// PinnedMessage is the minimal snapshot kept when a message is pinned:
// what it said, who said it, when.
type PinnedMessage struct {
	Body      string
	Author    string
	CreatedAt time.Time
}

// Scope bundles the ledger and the pinned set of one conversation
// boundary. It is not safe for concurrent use; the dispatcher serializes
// access.
type Scope struct {
	Key    ScopeKey
	ledger *Ledger
	pins   map[uuid.UUID]PinnedMessage
}

func NewScope(key ScopeKey, capacity int) *Scope {
	return &Scope{
		Key:    key,
		ledger: NewLedger(capacity),
		pins:   make(map[uuid.UUID]PinnedMessage),
	}
}

func (s *Scope) Append(m Message) {
	s.ledger.Append(m)
}

func (s *Scope) Snapshot() []Message {
	return s.ledger.Snapshot()
}

func (s *Scope) MessageCount() int {
	return s.ledger.Len()
}

// Pinned returns a copy of the pinned set keyed by message id.
func (s *Scope) Pinned() map[uuid.UUID]PinnedMessage {
	out := make(map[uuid.UUID]PinnedMessage, len(s.pins))
	for id, pin := range s.pins {
		out[id] = pin
	}
	return out
}

// ToggleReaction flips actor's reaction on the identified message and
// returns the full updated reaction map, not a delta, so callers can
// broadcast authoritative state.
func (s *Scope) ToggleReaction(id uuid.UUID, emoji, actor string) (Reactions, error) {
	msg, ok := s.ledger.Find(id)
	if !ok {
		return nil, errors.ErrMessageNotFound
	}
	if msg.Reactions == nil {
		msg.Reactions = make(Reactions)
	}
	msg.Reactions = msg.Reactions.Toggle(emoji, actor)
	return msg.Reactions.Clone(), nil
}

// TogglePin flips the identified message's membership in the pinned set.
// Pin state is derived purely from key presence.
func (s *Scope) TogglePin(id uuid.UUID) (bool, PinnedMessage, error) {
	if pin, ok := s.pins[id]; ok {
		delete(s.pins, id)
		return false, pin, nil
	}
	msg, ok := s.ledger.Find(id)
	if !ok {
		return false, PinnedMessage{}, errors.ErrMessageNotFound
	}
	pin := PinnedMessage{Body: msg.Body, Author: msg.Author, CreatedAt: msg.CreatedAt}
	s.pins[id] = pin
	return true, pin, nil
}
