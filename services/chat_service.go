//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fanshub-chat/contract"
	"fanshub-chat/domain"
	"fanshub-chat/domain/event"
	"fanshub-chat/domain/mediakind"
	"fanshub-chat/errors"
	"fanshub-chat/moderation"
	"fanshub-chat/repositories"

	"github.com/google/uuid"
)

type IChatService interface {
	Authorize(convID domain.ConversationID, callerID string) (domain.Conversation, error)
	StartConversation(callerID, peerID string) (domain.Conversation, error)
	Join(convID domain.ConversationID, sessionID, participantID string, sink contract.EventSink)
	Leave(convID domain.ConversationID, sessionID, participantID string)
	SendText(ctx context.Context, convID domain.ConversationID, senderID, body string) error
	SendMedia(ctx context.Context, convID domain.ConversationID, senderID string, data []byte, declaredType string) error
	Typing(ctx context.Context, convID domain.ConversationID, participantID string, isTyping bool) error
	History(convID domain.ConversationID, callerID string, cursor *string) ([]domain.Message, *string, error)
}

type ChatService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	blobs         contract.IBlobStore
	registry      contract.IRegistry
	presence      contract.IPresenceTracker
	broadcaster   contract.IBroadcaster
	moderator     *moderation.Moderator
	log           *slog.Logger
}

func NewChatService(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	blobs contract.IBlobStore,
	registry contract.IRegistry,
	presence contract.IPresenceTracker,
	broadcaster contract.IBroadcaster,
	moderator *moderation.Moderator,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		blobs:         blobs,
		registry:      registry,
		presence:      presence,
		broadcaster:   broadcaster,
		moderator:     moderator,
		log:           log,
	}
}

// Authorize is the gate a connection passes exactly once, before joining.
// It is never rechecked mid-connection: a participant removed while
// connected keeps the live session until disconnect.
func (s *ChatService) Authorize(convID domain.ConversationID, callerID string) (domain.Conversation, error) {
	conv, err := s.conversations.Get(convID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conv.IsParticipant(callerID) {
		return domain.Conversation{}, errors.ErrNotParticipant
	}
	return conv, nil
}

// StartConversation returns the one conversation between the two users,
// creating it on first contact.
func (s *ChatService) StartConversation(callerID, peerID string) (domain.Conversation, error) {
	conv, created, err := s.conversations.GetOrCreate(callerID, peerID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if created {
		s.log.Info("Conversation created", "conversation", conv.ID,
			"creator", conv.CreatorID, "subscriber", conv.SubscriberID)
	}
	return conv, nil
}

// Join wires an authorized session into the conversation: broadcast
// subscription first, then presence, whose online announcement fans out to
// the already-subscribed sinks, the joining session included.
func (s *ChatService) Join(convID domain.ConversationID, sessionID, participantID string, sink contract.EventSink) {
	s.registry.Subscribe(convID, sessionID, sink)
	s.presence.Connect(domain.PresenceKey{ConversationID: convID, ParticipantID: participantID})
}

// Leave detaches the session and arms the presence cooldown. In-flight
// message writes started by this session are unaffected.
func (s *ChatService) Leave(convID domain.ConversationID, sessionID, participantID string) {
	s.registry.Unsubscribe(convID, sessionID)
	s.presence.Disconnect(domain.PresenceKey{ConversationID: convID, ParticipantID: participantID})
}

// SendText persists the (moderated) body, then broadcasts it. Broadcast
// never happens for content that failed to persist.
func (s *ChatService) SendText(ctx context.Context, convID domain.ConversationID, senderID, body string) error {
	if strings.TrimSpace(body) == "" {
		return errors.ErrEmptyMessage
	}

	if s.moderator != nil {
		res := s.moderator.Censor(body)
		if res.Masked {
			s.log.Info("Message censored", "conversation", convID,
				"sender", senderID, "lang", res.Lang)
		}
		body = res.Text
	}

	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.StoreMessage(msg); err != nil {
		return fmt.Errorf("message store failed: %w", err)
	}

	return s.broadcaster.Publish(ctx, event.ChatMessage{
		ID:           msg.ID,
		Conversation: convID,
		SenderID:     senderID,
		Body:         msg.Body,
		At:           msg.CreatedAt,
	})
}

// SendMedia sniffs the payload, stores the blob under a generated
// conversation-scoped name, persists a bodyless message pointing at it, then
// broadcasts. An unrecognized payload returns ErrUnknownMedia, which the
// session drops silently per the ingestion contract.
func (s *ChatService) SendMedia(ctx context.Context, convID domain.ConversationID, senderID string, data []byte, declaredType string) error {
	detected := mediakind.Sniff(data, declaredType)
	kind, ok := detected.Kind()
	if !ok {
		return errors.ErrUnknownMedia
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("chat_media/%s/%d%s", convID, now.UnixNano(), detected.Ext())
	url, err := s.blobs.Store(ctx, name, data)
	if err != nil {
		return fmt.Errorf("blob store failed: %w", err)
	}

	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       senderID,
		Media:          &domain.MediaRef{Path: url, Kind: kind},
		CreatedAt:      now,
	}
	if err := s.messages.StoreMessage(msg); err != nil {
		return fmt.Errorf("message store failed: %w", err)
	}

	return s.broadcaster.Publish(ctx, event.ChatMessage{
		ID:           msg.ID,
		Conversation: convID,
		SenderID:     senderID,
		MediaURL:     url,
		MediaKind:    kind,
		At:           now,
	})
}

// Typing relays the indicator without persistence or throttling.
func (s *ChatService) Typing(ctx context.Context, convID domain.ConversationID, participantID string, isTyping bool) error {
	return s.broadcaster.Publish(ctx, event.TypingChanged{
		Conversation:  convID,
		ParticipantID: participantID,
		IsTyping:      isTyping,
	})
}

// History returns a page of messages newest first and marks the peer's
// messages read: fetching history is how a recipient views the thread.
func (s *ChatService) History(convID domain.ConversationID, callerID string, cursor *string) ([]domain.Message, *string, error) {
	if _, err := s.messages.MarkRead(convID, callerID); err != nil {
		return nil, nil, err
	}
	return s.messages.GetMessages(convID, cursor)
}
