package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/authgate/internal/model"
)

var _ model.TotpUsedCodeStore = (*TotpUsedCodeRepository)(nil)

type TotpUsedCodeRepository struct {
	db *Connection
}

func NewTotpUsedCodeRepository(db *Connection) *TotpUsedCodeRepository {
	return &TotpUsedCodeRepository{db: db}
}

// Create records a consumed code. The unique index on (username, code,
// time_window) turns a concurrent replay into ErrDuplicate for all but
// one caller.
func (r *TotpUsedCodeRepository) Create(ctx context.Context, code model.TotpUsedCode) error {
	const query = `
        INSERT INTO totp_used_codes (id, username, code, time_window, used_at)
        VALUES ($1,$2,$3,$4,$5)
    `

	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		code.ID, code.Username, code.Code, code.TimeWindow, code.UsedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicate
		}
		return fmt.Errorf("failed to create used totp code: %w", err)
	}
	return nil
}

func (r *TotpUsedCodeRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM totp_used_codes WHERE used_at < $1`
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete used totp codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
