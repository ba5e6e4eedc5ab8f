//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-core/domain"
	"chat-core/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the delivery end of one connected client.
// Consume must never block past ctx: delivery is fire-and-forget
// from the dispatcher's point of view.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry is the presence index: session bookkeeping, display name
// resolution and audience expansion for outbound events.
type IRegistry interface {
	Register(sink EventSink) domain.SessionID
	Remove(id domain.SessionID) (domain.Session, bool)
	SetDisplayName(id domain.SessionID, name string) error
	SetRoom(id domain.SessionID, room string)
	Resolve(name string) (domain.SessionID, bool)
	Session(id domain.SessionID) (domain.Session, bool)
	SinksFor(audience event.Audience) []EventSink
	DisplayNames() []string
	Counts() (sessions int, named int)
}

// IDispatcher reduces one inbound command into the outbound events to
// publish. Precondition failures are absorbed, never surfaced.
type IDispatcher interface {
	Connect(sink EventSink) domain.SessionID
	Handle(cmd domain.Command) []event.Outbound
}
