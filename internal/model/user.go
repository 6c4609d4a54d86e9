package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RoleAdmin grants access to resources owned by other users.
const RoleAdmin = "ADMIN"

// CredentialStore defines persistence operations for credentials.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (Credential, error)
	GetByID(ctx context.Context, id uuid.UUID) (Credential, error)
	Create(ctx context.Context, credential Credential) (Credential, error)
	UpdatePassword(ctx context.Context, username string, passwordHash []byte) error
	Disable(ctx context.Context, username string) error
}

// Credential represents a stored account with authentication material.
// Accounts are never physically deleted; DisabledAt marks them unusable.
type Credential struct {
	ID           uuid.UUID
	Username     string
	PasswordHash []byte
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DisabledAt   *time.Time
}

// HasRole reports whether the credential carries the given role.
func (c Credential) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
