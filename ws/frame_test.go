package ws

import (
	"encoding/json"
	"testing"
	"time"

	"fanshub-chat/domain"
	"fanshub-chat/domain/event"
	apperrors "fanshub-chat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	t.Run("should decode a text frame", func(t *testing.T) {
		req := require.New(t)

		frame, err := DecodeInbound([]byte(`{"type":"chat_text","body":"hello"}`))

		req.NoError(err)
		req.Equal(FrameChatText, frame.Type)
		req.Equal("hello", frame.Body)
	})

	t.Run("should decode a media frame with base64 payload", func(t *testing.T) {
		req := require.New(t)

		// "\xff\xd8\xff" base64-encoded
		frame, err := DecodeInbound([]byte(`{"type":"chat_media","data":"/9j/","content_type":"image/jpeg"}`))

		req.NoError(err)
		req.Equal(FrameChatMedia, frame.Type)
		req.Equal([]byte{0xFF, 0xD8, 0xFF}, frame.Data)
		req.Equal("image/jpeg", frame.ContentType)
	})

	t.Run("should reject invalid JSON", func(t *testing.T) {
		req := require.New(t)

		_, err := DecodeInbound([]byte(`{"type":`))

		req.ErrorIs(err, apperrors.ErrMalformedFrame)
	})

	t.Run("should reject an unknown frame type", func(t *testing.T) {
		req := require.New(t)

		_, err := DecodeInbound([]byte(`{"type":"shutdown"}`))

		req.ErrorIs(err, apperrors.ErrMalformedFrame)
	})

	t.Run("should reject a missing frame type", func(t *testing.T) {
		req := require.New(t)

		_, err := DecodeInbound([]byte(`{"body":"hello"}`))

		req.ErrorIs(err, apperrors.ErrMalformedFrame)
	})
}

func TestEncodeEvent(t *testing.T) {
	convID := uuid.New()

	t.Run("should render a chat message", func(t *testing.T) {
		req := require.New(t)
		id := uuid.New()
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		payload, err := EncodeEvent(event.ChatMessage{
			ID: id, Conversation: convID, SenderID: "alice", Body: "hi", At: at,
		})

		req.NoError(err)
		var got map[string]any
		req.NoError(json.Unmarshal(payload, &got))
		req.Equal("message", got["type"])
		req.Equal(id.String(), got["id"])
		req.Equal("alice", got["sender_id"])
		req.Equal("hi", got["body"])
		req.NotContains(got, "media_url")
	})

	t.Run("should render a presence change", func(t *testing.T) {
		req := require.New(t)

		payload, err := EncodeEvent(event.PresenceChanged{
			Conversation: convID, ParticipantID: "bob", Status: domain.StatusOnline,
		})

		req.NoError(err)
		var got map[string]any
		req.NoError(json.Unmarshal(payload, &got))
		req.Equal("presence", got["type"])
		req.Equal("bob", got["participant_id"])
		req.Equal("online", got["status"])
	})

	t.Run("should render a typing indicator", func(t *testing.T) {
		req := require.New(t)

		payload, err := EncodeEvent(event.TypingChanged{
			Conversation: convID, ParticipantID: "bob", IsTyping: true,
		})

		req.NoError(err)
		var got map[string]any
		req.NoError(json.Unmarshal(payload, &got))
		req.Equal("typing", got["type"])
		req.Equal(true, got["is_typing"])
	})
}
