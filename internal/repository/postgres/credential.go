package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkarev/authgate/internal/model"
)

var _ model.CredentialStore = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db *Connection
}

func NewCredentialRepository(db *Connection) *CredentialRepository {
	return &CredentialRepository{
		db: db,
	}
}

func (r *CredentialRepository) GetByUsername(ctx context.Context, username string) (model.Credential, error) {
	var credential model.Credential
	query := `SELECT id, username, password_hash, roles, created_at, updated_at, disabled_at
			  FROM credentials WHERE username = $1`

	err := r.db.QueryRow(ctx, query, username).Scan(
		&credential.ID, &credential.Username, &credential.PasswordHash, &credential.Roles,
		&credential.CreatedAt, &credential.UpdatedAt, &credential.DisabledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Credential{}, model.ErrNotFound
		}
		return model.Credential{}, fmt.Errorf("failed to get credential by username: %w", err)
	}

	return credential, nil
}

func (r *CredentialRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Credential, error) {
	var credential model.Credential
	query := `SELECT id, username, password_hash, roles, created_at, updated_at, disabled_at
			  FROM credentials WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&credential.ID, &credential.Username, &credential.PasswordHash, &credential.Roles,
		&credential.CreatedAt, &credential.UpdatedAt, &credential.DisabledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Credential{}, model.ErrNotFound
		}
		return model.Credential{}, fmt.Errorf("failed to get credential by id: %w", err)
	}

	return credential, nil
}

func (r *CredentialRepository) Create(ctx context.Context, credential model.Credential) (model.Credential, error) {
	query := `INSERT INTO credentials (id, username, password_hash, roles, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id, username, password_hash, roles, created_at, updated_at, disabled_at`

	var saved model.Credential
	err := r.db.QueryRow(ctx, query,
		credential.ID, credential.Username, credential.PasswordHash, credential.Roles,
		credential.CreatedAt, credential.UpdatedAt,
	).Scan(
		&saved.ID, &saved.Username, &saved.PasswordHash, &saved.Roles,
		&saved.CreatedAt, &saved.UpdatedAt, &saved.DisabledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Credential{}, model.ErrDuplicate
		}
		return model.Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}

	return saved, nil
}

func (r *CredentialRepository) UpdatePassword(ctx context.Context, username string, passwordHash []byte) error {
	const query = `
        UPDATE credentials SET password_hash = $2, updated_at = NOW()
        WHERE username = $1
    `
	tag, err := r.db.Exec(ctx, query, username, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *CredentialRepository) Disable(ctx context.Context, username string) error {
	const query = `
        UPDATE credentials SET disabled_at = NOW(), updated_at = NOW()
        WHERE username = $1 AND disabled_at IS NULL
    `
	tag, err := r.db.Exec(ctx, query, username)
	if err != nil {
		return fmt.Errorf("failed to disable credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
