package domain

import (
	"github.com/google/uuid"
)

// Ledger is the bounded message history of one scope. Retention is a
// strict FIFO cap: appending past capacity evicts from the head,
// oldest first, and never reorders what remains.
type Ledger struct {
	cap      int
	messages []Message
}

func NewLedger(capacity int) *Ledger {
	return &Ledger{cap: capacity}
}

func (l *Ledger) Append(m Message) {
	l.messages = append(l.messages, m)
	if l.cap > 0 && len(l.messages) > l.cap {
		evicted := len(l.messages) - l.cap
		l.messages = append(l.messages[:0], l.messages[evicted:]...)
	}
}

// Snapshot returns the retained window in insertion order. The slice is a
// copy; callers may keep it across later appends.
func (l *Ledger) Snapshot() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Ledger) Len() int {
	return len(l.messages)
}

// Find returns a pointer into the retained window, valid until the next
// Append. Used for in-place reaction toggles under the owner's lock.
func (l *Ledger) Find(id uuid.UUID) (*Message, bool) {
	for i := range l.messages {
		if l.messages[i].ID == id {
			return &l.messages[i], true
		}
	}
	return nil, false
}
