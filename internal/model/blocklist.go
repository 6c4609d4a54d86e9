package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BlockListStore persists identity/IP blocks.
type BlockListStore interface {
	Create(ctx context.Context, entry BlockEntry) error
	// Active reports whether an unexpired entry matches the username or
	// the client IP. Entries with a nil expiry never expire.
	Active(ctx context.Context, username, ipAddress string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AttemptStore tracks consecutive failed authentication attempts per
// username. RegisterFailure returns the updated count.
type AttemptStore interface {
	RegisterFailure(ctx context.Context, username, ipAddress string, now time.Time) (int, error)
	Reset(ctx context.Context, username string) error
}

// FailedAttemptPolicy decides when repeated authentication failures turn
// into block entries. The threshold is policy, not a model invariant.
type FailedAttemptPolicy interface {
	RecordFailure(ctx context.Context, username, ipAddress string) error
	Reset(ctx context.Context, username string) error
}

// BlockEntry bars an identity and/or IP from authenticating. A nil
// ExpiresAt means the block is permanent.
type BlockEntry struct {
	ID             uuid.UUID
	Username       string
	Email          string
	IPAddress      string
	Reason         string
	FailedAttempts int
	BlockedAt      time.Time
	ExpiresAt      *time.Time
}
