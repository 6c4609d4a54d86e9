package service

import (
	"github.com/google/uuid"

	"github.com/mkarev/authgate/internal/apperrors"
	"github.com/mkarev/authgate/internal/model"
)

// Identity is the already-authenticated caller, supplied by the consuming
// transport layer after token validation.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Roles    []string
}

// ValidateAccess allows an operation on an owned resource only for the
// owner or an administrator. Pure check, no side effects.
func ValidateAccess(identity Identity, ownerID uuid.UUID) error {
	if identity.UserID == ownerID {
		return nil
	}
	for _, role := range identity.Roles {
		if role == model.RoleAdmin {
			return nil
		}
	}
	return apperrors.NewErrUnauthorized()
}
