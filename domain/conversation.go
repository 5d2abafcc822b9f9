// Package domain contains core concepts of the conversation subsystem.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConversationID = uuid.UUID

// Conversation is a two-participant messaging thread between a creator and
// one of their subscribers. Membership is immutable once created.
type Conversation struct {
	ID           ConversationID
	CreatorID    string
	SubscriberID string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsParticipant reports whether the given identity is one of the two members.
func (c Conversation) IsParticipant(userID string) bool {
	return userID == c.CreatorID || userID == c.SubscriberID
}

// Peer returns the other participant of the conversation.
// The caller must already be a participant.
func (c Conversation) Peer(userID string) string {
	if userID == c.CreatorID {
		return c.SubscriberID
	}
	return c.CreatorID
}

// PairKey normalizes the two participant identifiers into a stable unordered
// key, so one pair of users maps to exactly one conversation.
func PairKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
