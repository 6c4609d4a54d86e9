package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActiveTokenStore persists the set of currently valid token pairs.
//
// At most one row may exist per (username, session_id); Create returns
// ErrDuplicate when that constraint is violated. ClaimByRefreshHash is the
// compare-and-delete primitive backing refresh rotation: it atomically
// removes and returns the row keyed by the refresh-token hash, so exactly
// one of several concurrent callers observes the row.
type ActiveTokenStore interface {
	Create(ctx context.Context, token ActiveToken) error
	GetByTokenHash(ctx context.Context, tokenHash []byte) (ActiveToken, error)
	GetBySession(ctx context.Context, username, sessionID string) (ActiveToken, error)
	ClaimByRefreshHash(ctx context.Context, refreshHash []byte) (ActiveToken, error)
	DeleteByTokenHash(ctx context.Context, tokenHash []byte) error
	ListByUsername(ctx context.Context, username string) ([]ActiveToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ActiveToken is a live (access, refresh) pair for one session.
// Token material is stored as SHA-256 hashes, never raw.
type ActiveToken struct {
	ID               uuid.UUID
	Username         string
	SessionID        string
	TokenHash        []byte
	RefreshHash      []byte
	IssuedAt         time.Time
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
}
