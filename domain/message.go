package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
// Messages are append-only: no update or delete exists, only the Read flag
// flips once when the recipient views the conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID ConversationID
	SenderID       string
	Body           string
	Media          *MediaRef
	CreatedAt      time.Time
	Read           bool
}

// MediaRef points at an ingested blob. Path is the stored location returned
// by the blob store and Kind is the sniffed media family.
type MediaRef struct {
	Path string
	Kind MediaKind
}

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)
