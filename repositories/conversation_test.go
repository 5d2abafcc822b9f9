package repositories

import (
	"log/slog"
	"sync"
	"testing"

	"fanshub-chat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_GetOrCreate_Returns_Existing_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db, slog.Default())

	// Given a conversation between two users
	first, created, err := repository.GetOrCreate("creator", "subscriber")
	req.NoError(err)
	req.True(created)
	req.True(first.Active)
	req.True(first.IsParticipant("creator"))
	req.True(first.IsParticipant("subscriber"))

	// When the same pair starts a conversation again, in either order
	second, created, err := repository.GetOrCreate("creator", "subscriber")
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, second.ID)

	reversed, created, err := repository.GetOrCreate("subscriber", "creator")
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, reversed.ID)
}

func Test_GetOrCreate_Rejects_Self_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db, slog.Default())

	_, _, err := repository.GetOrCreate("narcissus", "narcissus")
	req.ErrorIs(err, errors.ErrSelfConversation)
}

func Test_Get_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db, slog.Default())

	conv, created, err := repository.GetOrCreate("creator", "subscriber")
	req.NoError(err)
	req.True(created)

	fetched, err := repository.Get(conv.ID)
	req.NoError(err)
	req.Equal(conv.ID, fetched.ID)

	_, err = repository.Get(uuid.New())
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

// Concurrent creation for one unordered pair must resolve to a single record.
func Test_GetOrCreate_Concurrent_Same_Pair(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db, slog.Default())

	const attempts = 32
	ids := make([]string, attempts)
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Alternate the argument order to stress the pair normalization too
			a, b := "creator", "subscriber"
			if i%2 == 1 {
				a, b = b, a
			}
			conv, _, err := repository.GetOrCreate(a, b)
			require.NoError(t, err)
			ids[i] = conv.ID.String()
		}(i)
	}
	wg.Wait()

	for i := 1; i < attempts; i++ {
		req.Equal(ids[0], ids[i])
	}
}
