package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvalidatedTokenStore persists the token denylist. A token present here
// must never be accepted, even if its natural expiry has not passed.
type InvalidatedTokenStore interface {
	// Create inserts a denylist entry. Inserting the same token hash
	// twice is not an error: revocation is idempotent.
	Create(ctx context.Context, token InvalidatedToken) error
	Exists(ctx context.Context, tokenHash []byte) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// InvalidatedToken is a denylist entry for a token revoked before its
// natural expiry. ExpiresAt mirrors the token's own expiry so the entry
// can be swept once the token would have died anyway.
type InvalidatedToken struct {
	ID        uuid.UUID
	TokenHash []byte
	Username  string
	SessionID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
