package ws

import (
	"context"

	"fanshub-chat/domain/event"
)

// Sink bridges the fanout worker to one session's write pump through a
// buffered channel, so a slow client never blocks delivery to its peers.
type Sink struct {
	Events chan event.DomainEvent
}

func NewSink(bufferSize int) *Sink {
	return &Sink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fanout worker. A full buffer drops the event for
// this session only: volatile fan-out, the store stays authoritative.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
