// Package presence tracks which participants are online in which
// conversation, with a debounce cooldown between the last disconnect and the
// offline announcement. State is runtime-only and rebuilt from zero on
// restart.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fanshub-chat/contract"
	"fanshub-chat/domain"
	"fanshub-chat/domain/event"
)

// entry is the per-(conversation, participant) state. sessions counts live
// connections so a second tab keeps the pair online; timer is the pending
// offline cooldown, nil unless the last session has disconnected.
type entry struct {
	mu       sync.Mutex
	sessions int
	timer    *time.Timer
}

// Tracker implements contract.IPresenceTracker. Each pair owns its entry and
// its mutex: the cancel-then-set sequence around the cooldown timer is atomic
// per pair, and operations on different pairs never block each other.
type Tracker struct {
	mu          sync.Mutex // guards the entries map only
	entries     map[domain.PresenceKey]*entry
	cooldown    time.Duration
	broadcaster contract.IBroadcaster
	log         *slog.Logger
}

func NewTracker(broadcaster contract.IBroadcaster, cooldown time.Duration, log *slog.Logger) *Tracker {
	return &Tracker{
		entries:     make(map[domain.PresenceKey]*entry),
		cooldown:    cooldown,
		broadcaster: broadcaster,
		log:         log,
	}
}

// entryFor returns the live entry for the pair, locked. An entry can expire
// between the map lookup and the entry lock (cooldown firing concurrently),
// in which case the lookup is retried against the fresh map state.
func (t *Tracker) entryFor(key domain.PresenceKey) *entry {
	for {
		t.mu.Lock()
		e, ok := t.entries[key]
		if !ok {
			e = &entry{}
			t.entries[key] = e
		}
		t.mu.Unlock()

		e.mu.Lock()
		t.mu.Lock()
		current := t.entries[key] == e
		t.mu.Unlock()
		if current {
			return e
		}
		e.mu.Unlock()
	}
}

// Connect records a new live session for the pair. Any pending cooldown is
// cancelled before the session is counted, so a reconnect racing the timer
// never produces a spurious offline event. The online announcement is
// published only on the Absent -> Online edge.
func (t *Tracker) Connect(key domain.PresenceKey) bool {
	e := t.entryFor(key)
	wasAbsent := e.sessions == 0 && e.timer == nil
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.sessions++
	e.mu.Unlock()

	if wasAbsent {
		t.publish(key, domain.StatusOnline)
	}
	return wasAbsent
}

// Disconnect drops one live session. When the last one is gone the cooldown
// timer is armed; if it fires without a reconnect the pair is announced
// offline and its entry cleared.
func (t *Tracker) Disconnect(key domain.PresenceKey) {
	e := t.entryFor(key)
	defer e.mu.Unlock()

	if e.sessions > 0 {
		e.sessions--
	}
	if e.sessions > 0 || e.timer != nil {
		return
	}

	e.timer = time.AfterFunc(t.cooldown, func() {
		e.mu.Lock()
		// A reconnect may have stopped the timer after it was already
		// scheduled to run; the nil check makes that race harmless.
		expired := e.timer != nil && e.sessions == 0
		e.timer = nil
		if expired {
			t.mu.Lock()
			if t.entries[key] == e {
				delete(t.entries, key)
			}
			t.mu.Unlock()
		}
		e.mu.Unlock()

		if expired {
			t.publish(key, domain.StatusOffline)
		}
	})
}

// Online lists the participants currently reported online in a conversation.
// A participant inside the cooldown window still counts as online.
func (t *Tracker) Online(convID domain.ConversationID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var online []string
	for key := range t.entries {
		if key.ConversationID == convID {
			online = append(online, key.ParticipantID)
		}
	}
	return online
}

func (t *Tracker) publish(key domain.PresenceKey, status domain.PresenceStatus) {
	evt := event.PresenceChanged{
		Conversation:  key.ConversationID,
		ParticipantID: key.ParticipantID,
		Status:        status,
	}
	if err := t.broadcaster.Publish(context.Background(), evt); err != nil {
		t.log.Warn("Presence event lost", "participant", key.ParticipantID, "status", status, "error", err)
	}
}
