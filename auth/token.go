// Package auth validates the identity token the enclosing platform hands to
// a connecting client. Issuing tokens belongs to the platform's account
// service; GenerateToken exists for that collaborator and for tests.
package auth

import (
	"time"

	"fanshub-chat/errors"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "fanshub"

// CustomClaims is the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) TokenService {
	return TokenService{secret: []byte(secret)}
}

// GenerateToken creates a signed JWT for a specific user.
func (s TokenService) GenerateToken(userID string, validity time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses the token, checks signature and expiry, and returns
// the caller identity. Every failure collapses into ErrInvalidToken so the
// connection handler has a single rejection path.
func (s TokenService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", errors.ErrInvalidToken
	}
	return claims.UserID, nil
}
