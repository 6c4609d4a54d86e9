package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/authgate/internal/model"
)

var _ model.BlockListStore = (*BlockListRepository)(nil)

type BlockListRepository struct {
	db *Connection
}

func NewBlockListRepository(db *Connection) *BlockListRepository {
	return &BlockListRepository{db: db}
}

func (r *BlockListRepository) Create(ctx context.Context, entry model.BlockEntry) error {
	const query = `
        INSERT INTO block_list (id, username, email, ip_address, reason, failed_attempts, blocked_at, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.Username, entry.Email, entry.IPAddress, entry.Reason,
		entry.FailedAttempts, entry.BlockedAt, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create block entry: %w", err)
	}
	return nil
}

// Active matches on username or IP; NULL expiry means a permanent block.
func (r *BlockListRepository) Active(ctx context.Context, username, ipAddress string, now time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM block_list
            WHERE (username = $1 OR (ip_address <> '' AND ip_address = $2))
              AND (expires_at IS NULL OR expires_at > $3)
        )
    `

	var exists bool
	if err := r.db.QueryRow(ctx, query, username, ipAddress, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check block list: %w", err)
	}
	return exists, nil
}

func (r *BlockListRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM block_list WHERE expires_at IS NOT NULL AND expires_at <= $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired block entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
