//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"fanshub-chat/domain"
	"fanshub-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IConversationRepository interface {
	Get(id domain.ConversationID) (domain.Conversation, error)
	GetOrCreate(creatorID, subscriberID string) (domain.Conversation, bool, error)
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

type diskConversation struct {
	ID         uuid.UUID `json:"id"`
	Creator    string    `json:"creator"`
	Subscriber string    `json:"subscriber"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func conversationKey(id domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("conv:%s", id))
}

// pairKey is the unique index over the unordered participant pair, so a
// second creation attempt for the same two users resolves to the first record.
func pairKey(a, b string) []byte {
	lo, hi := domain.PairKey(a, b)
	return []byte(fmt.Sprintf("convpair:%s:%s", lo, hi))
}

func (r ConversationRepository) Get(id domain.ConversationID) (domain.Conversation, error) {
	var dc diskConversation
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &dc)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, errors.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	return fromDiskConversation(dc), nil
}

// GetOrCreate returns the conversation between the two participants,
// creating it on first use. The pair index and the record are written in one
// badger transaction; under concurrent creation of the same pair one
// transaction wins and the loser retries, reads the index, and returns the
// winner's record. The second return reports whether a record was created.
func (r ConversationRepository) GetOrCreate(creatorID, subscriberID string) (domain.Conversation, bool, error) {
	if creatorID == subscriberID {
		return domain.Conversation{}, false, errors.ErrSelfConversation
	}

	for {
		conv, created, err := r.getOrCreateOnce(creatorID, subscriberID)
		if goerrors.Is(err, badger.ErrConflict) {
			r.log.Debug("Conversation creation conflict, retrying",
				"creator", creatorID, "subscriber", subscriberID)
			continue
		}
		return conv, created, err
	}
}

func (r ConversationRepository) getOrCreateOnce(creatorID, subscriberID string) (domain.Conversation, bool, error) {
	var dc diskConversation
	created := false

	err := r.db.Update(func(txn *badger.Txn) error {
		created = false
		index := pairKey(creatorID, subscriberID)

		item, err := txn.Get(index)
		switch {
		case err == nil:
			var id uuid.UUID
			if err := item.Value(func(value []byte) error {
				id, err = uuid.Parse(string(value))
				return err
			}); err != nil {
				return err
			}
			existing, err := txn.Get(conversationKey(id))
			if err != nil {
				return err
			}
			return existing.Value(func(value []byte) error {
				return json.Unmarshal(value, &dc)
			})

		case goerrors.Is(err, badger.ErrKeyNotFound):
			now := time.Now().UTC()
			dc = diskConversation{
				ID:         uuid.New(),
				Creator:    creatorID,
				Subscriber: subscriberID,
				Active:     true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			bytes, err := json.Marshal(dc)
			if err != nil {
				return err
			}
			if err := txn.Set(conversationKey(dc.ID), bytes); err != nil {
				return err
			}
			if err := txn.Set(index, []byte(dc.ID.String())); err != nil {
				return err
			}
			created = true
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return fromDiskConversation(dc), created, nil
}

func fromDiskConversation(dc diskConversation) domain.Conversation {
	return domain.Conversation{
		ID:           dc.ID,
		CreatorID:    dc.Creator,
		SubscriberID: dc.Subscriber,
		Active:       dc.Active,
		CreatedAt:    dc.CreatedAt,
		UpdatedAt:    dc.UpdatedAt,
	}
}
