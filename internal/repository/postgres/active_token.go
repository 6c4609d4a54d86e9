package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkarev/authgate/internal/model"
)

var _ model.ActiveTokenStore = (*ActiveTokenRepository)(nil)

type ActiveTokenRepository struct {
	db *Connection
}

func NewActiveTokenRepository(db *Connection) *ActiveTokenRepository {
	return &ActiveTokenRepository{db: db}
}

func (r *ActiveTokenRepository) Create(ctx context.Context, token model.ActiveToken) error {
	const query = `
        INSERT INTO active_tokens (
            id, username, session_id, token_hash, refresh_hash, issued_at, expires_at, refresh_expires_at, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
    `

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		token.ID, token.Username, token.SessionID, token.TokenHash, token.RefreshHash,
		token.IssuedAt, token.ExpiresAt, token.RefreshExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicate
		}
		return fmt.Errorf("failed to create active token: %w", err)
	}
	return nil
}

func (r *ActiveTokenRepository) GetByTokenHash(ctx context.Context, tokenHash []byte) (model.ActiveToken, error) {
	const query = `
        SELECT id, username, session_id, token_hash, refresh_hash, issued_at, expires_at, refresh_expires_at, created_at
        FROM active_tokens WHERE token_hash = $1
    `
	return r.scanOne(r.db.QueryRow(ctx, query, tokenHash), "failed to get active token by hash")
}

func (r *ActiveTokenRepository) GetBySession(ctx context.Context, username, sessionID string) (model.ActiveToken, error) {
	const query = `
        SELECT id, username, session_id, token_hash, refresh_hash, issued_at, expires_at, refresh_expires_at, created_at
        FROM active_tokens WHERE username = $1 AND session_id = $2
    `
	return r.scanOne(r.db.QueryRow(ctx, query, username, sessionID), "failed to get active token by session")
}

// ClaimByRefreshHash deletes and returns the row in one statement. The
// unique index on refresh_hash makes this the compare-and-delete contract
// behind refresh rotation: concurrent claims for the same hash see the
// row at most once.
func (r *ActiveTokenRepository) ClaimByRefreshHash(ctx context.Context, refreshHash []byte) (model.ActiveToken, error) {
	const query = `
        DELETE FROM active_tokens WHERE refresh_hash = $1
        RETURNING id, username, session_id, token_hash, refresh_hash, issued_at, expires_at, refresh_expires_at, created_at
    `
	return r.scanOne(r.db.QueryRow(ctx, query, refreshHash), "failed to claim active token by refresh hash")
}

func (r *ActiveTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash []byte) error {
	const query = `DELETE FROM active_tokens WHERE token_hash = $1`
	if _, err := r.db.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("failed to delete active token: %w", err)
	}
	return nil
}

func (r *ActiveTokenRepository) ListByUsername(ctx context.Context, username string) ([]model.ActiveToken, error) {
	const query = `
        SELECT id, username, session_id, token_hash, refresh_hash, issued_at, expires_at, refresh_expires_at, created_at
        FROM active_tokens WHERE username = $1
    `
	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tokens: %w", err)
	}
	defer rows.Close()

	tokens := []model.ActiveToken{}
	for rows.Next() {
		var t model.ActiveToken
		err := rows.Scan(
			&t.ID, &t.Username, &t.SessionID, &t.TokenHash, &t.RefreshHash,
			&t.IssuedAt, &t.ExpiresAt, &t.RefreshExpiresAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan active token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active tokens: %w", err)
	}

	return tokens, nil
}

func (r *ActiveTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM active_tokens WHERE refresh_expires_at <= $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired active tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ActiveTokenRepository) scanOne(row pgx.Row, errMsg string) (model.ActiveToken, error) {
	var t model.ActiveToken
	err := row.Scan(
		&t.ID, &t.Username, &t.SessionID, &t.TokenHash, &t.RefreshHash,
		&t.IssuedAt, &t.ExpiresAt, &t.RefreshExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ActiveToken{}, model.ErrNotFound
		}
		return model.ActiveToken{}, fmt.Errorf("%s: %w", errMsg, err)
	}
	return t, nil
}
