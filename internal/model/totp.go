package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TotpSecretStore persists per-user TOTP secrets. At most one secret is
// active per username; rotation deactivates the previous one rather than
// deleting it, keeping an audit trail of enrollments.
type TotpSecretStore interface {
	Create(ctx context.Context, secret TotpSecret) error
	GetActiveByUsername(ctx context.Context, username string) (TotpSecret, error)
	DeactivateByUsername(ctx context.Context, username string) error
	// UpdateBackupCodes replaces the stored backup-code hash set for one
	// secret row. Consuming a code and regenerating the set both go
	// through here.
	UpdateBackupCodes(ctx context.Context, id uuid.UUID, hashes [][]byte) error
}

// TotpUsedCodeStore records consumed codes for replay prevention. Create
// returns ErrDuplicate when the (username, code, time_window) triple was
// already recorded; the uniqueness constraint is what makes concurrent
// verification race-free.
type TotpUsedCodeStore interface {
	Create(ctx context.Context, code TotpUsedCode) error
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// TotpEnrollment is handed back to the user exactly once, at enrollment.
// BackupCodes are the plain single-use codes; only their hashes are
// stored.
type TotpEnrollment struct {
	Secret          string
	ProvisioningURI string
	BackupCodes     []string
}

// TotpSecret holds one-time-password key material for a user.
// BackupCodes are bcrypt hashes of the unconsumed single-use codes.
type TotpSecret struct {
	ID          uuid.UUID
	Username    string
	SecretKey   string
	DeviceName  string
	Active      bool
	BackupCodes [][]byte
	CreatedAt   time.Time
}

// TotpUsedCode marks a (username, code, window) triple as consumed.
type TotpUsedCode struct {
	ID         uuid.UUID
	Username   string
	Code       string
	TimeWindow int64
	UsedAt     time.Time
}
