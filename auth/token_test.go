package auth

import (
	"testing"
	"time"

	"fanshub-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestTokenService_Round_Trip(t *testing.T) {
	req := require.New(t)
	svc := NewTokenService("test-secret")

	token, err := svc.GenerateToken("alice", time.Hour)
	req.NoError(err)

	userID, err := svc.ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", userID)
}

func TestTokenService_Rejections(t *testing.T) {
	req := require.New(t)
	svc := NewTokenService("test-secret")

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.GenerateToken("alice", -time.Minute)
		req.NoError(err)
		_, err = svc.ValidateToken(token)
		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("another-secret")
		token, err := other.GenerateToken("alice", time.Hour)
		req.NoError(err)
		_, err = svc.ValidateToken(token)
		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		req.ErrorIs(err, errors.ErrInvalidToken)
	})
}
