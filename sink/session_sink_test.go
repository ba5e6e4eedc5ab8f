package sink

import (
	"chat-core/domain"
	"chat-core/domain/event"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionSink_Buffers_Events(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(2)

	req.NoError(s.Consume(context.Background(), event.TypingStarted{User: "alice"}))
	req.NoError(s.Consume(context.Background(), event.TypingStopped{User: "alice"}))

	first := <-s.Events
	req.Equal("typing", first.Name())
}

func TestSessionSink_Full_Buffer_Honors_Timeout(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(1)
	req.NoError(s.Consume(context.Background(), event.TypingStarted{User: "alice"}))

	// Nobody drains the channel: the second delivery must give up
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Consume(ctx, event.TypingStopped{User: "alice"})
	req.ErrorIs(err, context.DeadlineExceeded)
	req.Len(s.Events, 1)
}

func TestTimeline_Collects_Only_Messages(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("alice")

	msg := domain.Message{Author: "bob", Body: "hello", Kind: domain.KindText}
	req.NoError(timeline.Consume(context.Background(), event.NewMessage{Message: msg}))
	req.NoError(timeline.Consume(context.Background(), event.TypingStarted{User: "bob"}))

	messages := timeline.Messages()
	req.Len(messages, 1)
	req.Equal("hello", messages[0].Body)
}
