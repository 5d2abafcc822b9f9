package ws

import (
	"encoding/json"
	"time"

	"fanshub-chat/domain/event"
	apperrors "fanshub-chat/errors"

	"github.com/go-playground/validator/v10"
)

const (
	FrameChatText  = "chat_text"
	FrameChatMedia = "chat_media"
	FrameTyping    = "typing"
)

var validate = validator.New()

// InboundFrame is one client frame. Data carries the raw media payload,
// base64 on the wire via encoding/json.
type InboundFrame struct {
	Type        string `json:"type" validate:"required,oneof=chat_text chat_media typing"`
	Body        string `json:"body,omitempty"`
	Data        []byte `json:"data,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	IsTyping    bool   `json:"is_typing,omitempty"`
}

// DecodeInbound parses and validates one client frame. Anything that fails
// to parse or names an unknown type is ErrMalformedFrame: the connection
// survives, the frame does not.
func DecodeInbound(raw []byte) (InboundFrame, error) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return InboundFrame{}, apperrors.ErrMalformedFrame
	}
	if err := validate.Struct(frame); err != nil {
		return InboundFrame{}, apperrors.ErrMalformedFrame
	}
	return frame, nil
}

type outboundMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaKind string    `json:"media_kind,omitempty"`
	At        time.Time `json:"at"`
}

type outboundPresence struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participant_id"`
	Status        string `json:"status"`
}

type outboundTyping struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participant_id"`
	IsTyping      bool   `json:"is_typing"`
}

// EncodeEvent renders a fanned-out domain event as the frame a client sees.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	switch ev := e.(type) {
	case event.ChatMessage:
		return json.Marshal(outboundMessage{
			Type:      "message",
			ID:        ev.ID.String(),
			SenderID:  ev.SenderID,
			Body:      ev.Body,
			MediaURL:  ev.MediaURL,
			MediaKind: string(ev.MediaKind),
			At:        ev.At,
		})
	case event.PresenceChanged:
		return json.Marshal(outboundPresence{
			Type:          "presence",
			ParticipantID: ev.ParticipantID,
			Status:        string(ev.Status),
		})
	case event.TypingChanged:
		return json.Marshal(outboundTyping{
			Type:          "typing",
			ParticipantID: ev.ParticipantID,
			IsTyping:      ev.IsTyping,
		})
	default:
		return nil, apperrors.ErrMalformedFrame
	}
}
