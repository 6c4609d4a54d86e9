package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/authgate/internal/model"
)

var _ model.InvalidatedTokenStore = (*InvalidatedTokenRepository)(nil)

type InvalidatedTokenRepository struct {
	db *Connection
}

func NewInvalidatedTokenRepository(db *Connection) *InvalidatedTokenRepository {
	return &InvalidatedTokenRepository{db: db}
}

// Create inserts a denylist entry. ON CONFLICT DO NOTHING keeps
// revocation idempotent.
func (r *InvalidatedTokenRepository) Create(ctx context.Context, token model.InvalidatedToken) error {
	const query = `
        INSERT INTO invalidated_tokens (id, token_hash, username, session_id, expires_at, created_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
        ON CONFLICT (token_hash) DO NOTHING
    `

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		token.ID, token.TokenHash, token.Username, token.SessionID, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invalidated token: %w", err)
	}
	return nil
}

func (r *InvalidatedTokenRepository) Exists(ctx context.Context, tokenHash []byte) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM invalidated_tokens WHERE token_hash = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, tokenHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check invalidated token: %w", err)
	}
	return exists, nil
}

func (r *InvalidatedTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM invalidated_tokens WHERE expires_at <= $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invalidated tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
