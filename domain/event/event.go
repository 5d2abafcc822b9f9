package event

import (
	"time"

	"fanshub-chat/domain"

	"github.com/google/uuid"
)

// DomainEvent is anything the broadcast group fans out to the sessions
// subscribed to one conversation.
type DomainEvent interface {
	ConversationID() domain.ConversationID
}

// ChatMessage is emitted after a message has been durably stored.
// Body is empty for media messages; MediaURL/MediaKind are empty for text.
type ChatMessage struct {
	ID           uuid.UUID
	Conversation domain.ConversationID
	SenderID     string
	Body         string
	MediaURL     string
	MediaKind    domain.MediaKind
	At           time.Time
}

func (e ChatMessage) ConversationID() domain.ConversationID {
	return e.Conversation
}

// PresenceChanged is emitted on the Absent->Online edge and when the
// offline cooldown expires. Intermediate cooldown state is never broadcast.
type PresenceChanged struct {
	Conversation  domain.ConversationID
	ParticipantID string
	Status        domain.PresenceStatus
}

func (e PresenceChanged) ConversationID() domain.ConversationID {
	return e.Conversation
}

// TypingChanged relays keystroke activity. Never persisted, never throttled.
type TypingChanged struct {
	Conversation  domain.ConversationID
	ParticipantID string
	IsTyping      bool
}

func (e TypingChanged) ConversationID() domain.ConversationID {
	return e.Conversation
}
