//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fanshub-chat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetMessages(convID domain.ConversationID, cursor *string) ([]domain.Message, *string, error)
	MarkRead(convID domain.ConversationID, readerID string) (int, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored shape. Kept separate from domain.Message so the
// on-disk encoding can evolve without touching the domain.
type diskMessage struct {
	ID           uuid.UUID        `json:"id"`
	Conversation uuid.UUID        `json:"conversation"`
	Sender       string           `json:"sender"`
	Body         string           `json:"body"`
	MediaPath    string           `json:"media_path,omitempty"`
	MediaKind    domain.MediaKind `json:"media_kind,omitempty"`
	At           time.Time        `json:"at"`
	Read         bool             `json:"read"`
}

// messageKey formats "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(convID domain.ConversationID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", convID, at.UnixNano(), id))
}

func messagePrefix(convID domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", convID))
}

func (m MessageRepository) StoreMessage(message domain.Message) error {
	key := messageKey(message.ConversationID, message.CreatedAt, message.ID)
	bytes, err := json.Marshal(toDiskMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bytes)
	})
}

// GetMessages retrieves messages for a conversation using a reverse prefix
// scan, newest first. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time. The returned cursor resumes the scan on the next
// page; collection stops once the configured limit is reached.
func (m MessageRepository) GetMessages(convID domain.ConversationID, cursor *string) ([]domain.Message, *string, error) {
	var raw [][]byte
	var lastKey string
	prefix := messagePrefix(convID)
	prefixLen := len(prefix)

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(raw) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			if err := item.Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	// An exhausted scan returns no cursor, so paginating callers have a
	// terminal page to stop on.
	if len(raw) == 0 {
		return nil, nil, nil
	}

	var messages []domain.Message
	for _, b := range raw {
		var dm diskMessage
		if err = json.Unmarshal(b, &dm); err != nil {
			return nil, nil, err
		}
		messages = append(messages, fromDiskMessage(dm))
	}
	return messages, &lastKey, nil
}

// MarkRead flips the read flag on every message of the conversation that the
// reader did not send. The reader viewing the thread is the only transition
// messages ever go through after being stored.
func (m MessageRepository) MarkRead(convID domain.ConversationID, readerID string) (int, error) {
	updated := 0
	prefix := messagePrefix(convID)

	err := m.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var dm diskMessage
			if err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &dm)
			}); err != nil {
				return err
			}
			if dm.Read || dm.Sender == readerID {
				continue
			}
			dm.Read = true
			bytes, err := json.Marshal(dm)
			if err != nil {
				return err
			}
			if err := txn.Set(append([]byte{}, item.Key()...), bytes); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func toDiskMessage(message domain.Message) diskMessage {
	dm := diskMessage{
		ID:           message.ID,
		Conversation: message.ConversationID,
		Sender:       message.SenderID,
		Body:         message.Body,
		At:           message.CreatedAt,
		Read:         message.Read,
	}
	if message.Media != nil {
		dm.MediaPath = message.Media.Path
		dm.MediaKind = message.Media.Kind
	}
	return dm
}

func fromDiskMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:             dm.ID,
		ConversationID: dm.Conversation,
		SenderID:       dm.Sender,
		Body:           dm.Body,
		Media: lo.Ternary(dm.MediaPath != "", &domain.MediaRef{
			Path: dm.MediaPath,
			Kind: dm.MediaKind,
		}, nil),
		CreatedAt: dm.At,
		Read:      dm.Read,
	}
}
