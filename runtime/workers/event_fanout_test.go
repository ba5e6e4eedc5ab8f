package workers

import (
	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/mocks"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Delivers_To_Every_Resolved_Sink(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	sink1 := mocks.NewMockEventSink(ctrl)
	sink2 := mocks.NewMockEventSink(ctrl)

	out := event.Outbound{
		Audience: event.ToSessions(domain.SessionID("a"), domain.SessionID("b")),
		Event:    event.TypingStarted{User: "alice"},
	}

	// Given the registry resolves the audience to two live sinks
	registry.EXPECT().
		SinksFor(out.Audience).
		Return([]contract.EventSink{sink1, sink2})

	// Then both sinks receive the event exactly once
	sink1.EXPECT().Consume(gomock.Any(), out.Event).Return(nil).Times(1)
	sink2.EXPECT().Consume(gomock.Any(), out.Event).Return(nil).Times(1)

	fanout := NewEventFanout(slog.Default(), registry, nil, nil, 50*time.Millisecond)
	fanout.Fanout(context.Background(), out)
}

func TestEventFanout_Sink_Failure_Does_Not_Stop_The_Others(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	failing := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	out := event.Outbound{
		Audience: event.ToEveryone(),
		Event:    event.UserList{Users: []string{"alice"}},
	}

	registry.EXPECT().
		SinksFor(out.Audience).
		Return([]contract.EventSink{failing, healthy})

	// Given the first sink times out
	failing.EXPECT().Consume(gomock.Any(), out.Event).Return(errors.New("sink saturated"))
	// Then delivery still reaches the second one
	delivered := false
	healthy.EXPECT().
		Consume(gomock.Any(), out.Event).
		DoAndReturn(func(ctx context.Context, e event.Event) error {
			delivered = true
			return nil
		})

	fanout := NewEventFanout(slog.Default(), registry, nil, nil, 50*time.Millisecond)
	fanout.Fanout(context.Background(), out)

	req.True(delivered)
}

func TestEventFanout_Run_Drains_Until_Canceled(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	sink := mocks.NewMockEventSink(ctrl)

	outbound := make(chan event.Outbound, 2)
	out := event.Outbound{
		Audience: event.ToSessions(domain.SessionID("a")),
		Event:    event.UserJoined{User: "alice"},
	}

	registry.EXPECT().SinksFor(out.Audience).Return([]contract.EventSink{sink}).Times(2)
	sink.EXPECT().Consume(gomock.Any(), out.Event).Return(nil).Times(2)

	fanout := NewEventFanout(slog.Default(), registry, outbound, nil, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanout.Run(ctx) }()

	outbound <- out
	outbound <- out

	// Give the worker time to drain, then cancel
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(500 * time.Millisecond):
		req.Fail("Fanout worker did not stop on context cancel")
	}
}
