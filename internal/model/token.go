package model

import (
	"errors"
	"time"
)

// TokenClaims is the authenticated payload carried by both token types.
type TokenClaims struct {
	Username  string
	SessionID string
	JTI       string
	ExpiresAt time.Time
}

// TokenManager generates and validates access/refresh tokens.
type TokenManager interface {
	GenerateAccessToken(username, sessionID string) (token string, expiresAt time.Time, err error)
	GenerateRefreshToken(username, sessionID string) (token string, jti string, expiresAt time.Time, err error)
	ParseAccessToken(token string) (TokenClaims, error)
	ParseRefreshToken(token string) (TokenClaims, error)
}

// TokenPair is the result of a successful issue or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	SessionID        string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)
