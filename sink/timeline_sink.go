package sink

import (
	"chat-core/domain"
	"chat-core/domain/event"
	"context"
	"sync"
)

// Timeline builds a local message timeline from observed events. Used by
// the console client and by tests to assert on what a session saw.
type Timeline struct {
	mu       sync.Mutex
	Owner    string
	messages []domain.Message
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner}
}

func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	evt, ok := e.(event.NewMessage)
	if !ok {
		return nil
	}
	t.mu.Lock()
	t.messages = append(t.messages, evt.Message)
	t.mu.Unlock()
	return nil
}

func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
