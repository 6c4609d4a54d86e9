package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mkarev/authgate/internal/model"
)

var _ model.AttemptStore = (*AttemptRepository)(nil)

type AttemptRepository struct {
	db *Connection
}

func NewAttemptRepository(db *Connection) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// RegisterFailure bumps the per-username counter in a single upsert and
// returns the new count.
func (r *AttemptRepository) RegisterFailure(ctx context.Context, username, ipAddress string, now time.Time) (int, error) {
	const query = `
        INSERT INTO login_attempts (username, ip_address, failed_attempts, last_failed_at)
        VALUES ($1, $2, 1, $3)
        ON CONFLICT (username) DO UPDATE
        SET failed_attempts = login_attempts.failed_attempts + 1,
            ip_address = EXCLUDED.ip_address,
            last_failed_at = EXCLUDED.last_failed_at
        RETURNING failed_attempts
    `

	var count int
	if err := r.db.QueryRow(ctx, query, username, ipAddress, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to register failed attempt: %w", err)
	}
	return count, nil
}

func (r *AttemptRepository) Reset(ctx context.Context, username string) error {
	const query = `DELETE FROM login_attempts WHERE username = $1`
	if _, err := r.db.Exec(ctx, query, username); err != nil {
		return fmt.Errorf("failed to reset failed attempts: %w", err)
	}
	return nil
}
