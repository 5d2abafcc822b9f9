package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"fanshub-chat/contract"
	"fanshub-chat/domain/event"
)

// Broadcaster funnels every published event through one buffered channel
// drained by a single fanout worker. One consumer means deliveries keep each
// publisher's order; nothing stronger is promised, and nothing survives a
// restart. Durability of chat content comes from the store write that
// happens before Publish is ever called.
type Broadcaster struct {
	events         chan event.DomainEvent
	registry       contract.IRegistry
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
	published      atomic.Int64
	log            *slog.Logger
}

func NewBroadcaster(registry contract.IRegistry, bufferSize int,
	sinkTimeout time.Duration, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		events:      make(chan event.DomainEvent, bufferSize),
		registry:    registry,
		sinkTimeout: sinkTimeout,
		log:         log,
	}
}

// Add attaches permanent in-process sinks (telemetry, projections) that
// receive every event regardless of conversation. Call before the fanout
// worker starts.
func (b *Broadcaster) Add(sinks ...contract.EventSink) {
	b.permanentSinks = append(b.permanentSinks, sinks...)
}

// Publish enqueues the event for fan-out. A full buffer drops the event
// rather than blocking a session's read loop.
func (b *Broadcaster) Publish(ctx context.Context, e event.DomainEvent) error {
	select {
	case b.events <- e:
		b.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		b.log.Warn(fmt.Sprintf("Event channel full for conversation %s, dropping event", e.ConversationID()))
		return nil
	}
}

// Published reports how many events entered the fan-out since startup.
func (b *Broadcaster) Published() int64 {
	return b.published.Load()
}

// FanoutWorker delivers each queued event to every session subscribed under
// its conversation id, plus the permanent sinks. Best-effort: a slow or gone
// sink costs at most sinkTimeout and never stalls the other subscribers.
type FanoutWorker struct {
	broadcaster *Broadcaster
	log         *slog.Logger
}

func NewFanoutWorker(broadcaster *Broadcaster, log *slog.Logger) *FanoutWorker {
	return &FanoutWorker{broadcaster: broadcaster, log: log}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt := <-w.broadcaster.events:
			w.fanout(ctx, evt)
		}
	}
}

func (w *FanoutWorker) fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := w.broadcaster.registry.SinksFor(evt.ConversationID())
	sinks = append(sinks, w.broadcaster.permanentSinks...)

	for _, sink := range sinks {
		deliveryCtx, cancel := context.WithTimeout(ctx, w.broadcaster.sinkTimeout)
		if err := sink.Consume(deliveryCtx, evt); err != nil {
			w.log.Debug("Sink delivery failed",
				"conversation", evt.ConversationID(),
				"error", err)
		}
		cancel()
	}
}
