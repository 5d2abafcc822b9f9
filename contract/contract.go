//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"fanshub-chat/domain"
	"fanshub-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding manual naming in the Worker interface.
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

// EventSink receives the events fanned out to one live session
// (or to a permanent in-process consumer such as telemetry).
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the broadcast-group membership: a concurrent multimap from
// conversation id to the sinks of its currently subscribed sessions.
// Subscriptions are per session, not per participant, so every open tab of
// one user holds its own entry and receives its own copy of each event.
type IRegistry interface {
	Subscribe(convID domain.ConversationID, sessionID string, sink EventSink)
	Unsubscribe(convID domain.ConversationID, sessionID string)
	SinksFor(convID domain.ConversationID) []EventSink
	Sessions() int
	Groups() int
}

// IBroadcaster delivers an event to every session subscribed under the
// event's conversation id, the publisher's own sessions included.
// Volatile fan-out: no durability, per-publisher FIFO only.
type IBroadcaster interface {
	Publish(ctx context.Context, e event.DomainEvent) error
}

// IPresenceTracker owns the per-(conversation, participant) online state and
// the offline cooldown timers. Connect reports whether the pair moved from
// absent to online; Disconnect arms the cooldown once the last session of a
// pair is gone.
type IPresenceTracker interface {
	Connect(key domain.PresenceKey) (wasAbsent bool)
	Disconnect(key domain.PresenceKey)
	Online(convID domain.ConversationID) []string
}

// IBlobStore persists an ingested media payload under a generated name and
// returns the path/URL recorded on the message.
type IBlobStore interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
}
