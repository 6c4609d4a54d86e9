package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkarev/authgate/internal/model"
)

var _ model.TotpSecretStore = (*TotpSecretRepository)(nil)

type TotpSecretRepository struct {
	db *Connection
}

func NewTotpSecretRepository(db *Connection) *TotpSecretRepository {
	return &TotpSecretRepository{db: db}
}

func (r *TotpSecretRepository) Create(ctx context.Context, secret model.TotpSecret) error {
	const query = `
        INSERT INTO totp_secrets (id, username, secret_key, device_name, active, backup_codes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `

	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		secret.ID, secret.Username, secret.SecretKey, secret.DeviceName, secret.Active, secret.BackupCodes, secret.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicate
		}
		return fmt.Errorf("failed to create totp secret: %w", err)
	}
	return nil
}

func (r *TotpSecretRepository) GetActiveByUsername(ctx context.Context, username string) (model.TotpSecret, error) {
	const query = `
        SELECT id, username, secret_key, device_name, active, backup_codes, created_at
        FROM totp_secrets WHERE username = $1 AND active
    `
	var secret model.TotpSecret
	err := r.db.QueryRow(ctx, query, username).Scan(
		&secret.ID, &secret.Username, &secret.SecretKey, &secret.DeviceName, &secret.Active, &secret.BackupCodes, &secret.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TotpSecret{}, model.ErrNotFound
		}
		return model.TotpSecret{}, fmt.Errorf("failed to get active totp secret: %w", err)
	}
	return secret, nil
}

// DeactivateByUsername flips active secrets off without deleting them;
// inactive rows remain as an enrollment audit trail.
func (r *TotpSecretRepository) DeactivateByUsername(ctx context.Context, username string) error {
	const query = `UPDATE totp_secrets SET active = FALSE WHERE username = $1 AND active`
	if _, err := r.db.Exec(ctx, query, username); err != nil {
		return fmt.Errorf("failed to deactivate totp secrets: %w", err)
	}
	return nil
}

func (r *TotpSecretRepository) UpdateBackupCodes(ctx context.Context, id uuid.UUID, hashes [][]byte) error {
	const query = `UPDATE totp_secrets SET backup_codes = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, hashes)
	if err != nil {
		return fmt.Errorf("failed to update backup codes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
