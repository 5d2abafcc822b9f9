// Package runtime owns event propagation between live sessions.
// It orchestrates delivery without containing domain rules.
package runtime

import (
	"sync"

	"fanshub-chat/contract"
	"fanshub-chat/domain"
)

// Registry is the broadcast-group membership: conversation id -> the sinks
// of every session currently subscribed under it. Entries are keyed by
// session id rather than participant id so that two tabs of the same user
// each receive their own copy of every event, the sender's echo included.
type Registry struct {
	mu     sync.RWMutex
	groups map[domain.ConversationID]map[string]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[domain.ConversationID]map[string]contract.EventSink)}
}

// Subscribe attaches a session's sink to its conversation group,
// initializing the group on first use.
func (r *Registry) Subscribe(convID domain.ConversationID, sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[convID]
	if !ok {
		group = make(map[string]contract.EventSink)
		r.groups[convID] = group
	}
	group[sessionID] = sink
}

// Unsubscribe detaches one session. The group entry is removed once empty so
// idle conversations don't accumulate in memory.
func (r *Registry) Unsubscribe(convID domain.ConversationID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[convID]
	if !ok {
		return
	}
	delete(group, sessionID)
	if len(group) == 0 {
		delete(r.groups, convID)
	}
}

// SinksFor snapshots the active sinks of a conversation. A session that
// unsubscribes between the snapshot and the delivery may or may not receive
// that publish.
func (r *Registry) SinksFor(convID domain.ConversationID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.groups[convID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(group))
	for _, sink := range group {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, group := range r.groups {
		total += len(group)
	}
	return total
}

func (r *Registry) Groups() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
