package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkarev/authgate/internal/apperrors"
	"github.com/mkarev/authgate/internal/logger"
	"github.com/mkarev/authgate/internal/model"
)

// totpStepSeconds is the fixed code validity bucket. Codes from the
// previous and next window are also accepted to tolerate clock skew.
const totpStepSeconds = 30

// Backup codes are the fallback second factor for a lost device: issued
// at enrollment, stored as bcrypt hashes, each usable once.
const (
	backupCodeCount  = 10
	backupCodeLength = 8
)

// TotpService manages second-factor secrets and verifies codes with
// replay protection.
type TotpService struct {
	secrets    model.TotpSecretStore
	usedCodes  model.TotpUsedCodeStore
	issuer     string
	bcryptCost int
	logger     *logger.Logger

	now func() time.Time
}

func NewTotpService(secrets model.TotpSecretStore, usedCodes model.TotpUsedCodeStore, issuer string, bcryptCost int, logger *logger.Logger) *TotpService {
	return &TotpService{
		secrets:    secrets,
		usedCodes:  usedCodes,
		issuer:     issuer,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Enroll generates a fresh secret for the user, deactivating any prior
// active one. The previous secret row is kept inactive as an audit trail.
// The returned provisioning URI is consumed by authenticator apps.
func (s *TotpService) Enroll(ctx context.Context, username, deviceName string) (model.TotpEnrollment, error) {
	s.logger.Debug("TOTP service: enrolling user",
		"username", username,
		"device_name", deviceName)

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: username,
	})
	if err != nil {
		return model.TotpEnrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	if err := s.secrets.DeactivateByUsername(ctx, username); err != nil {
		return model.TotpEnrollment{}, fmt.Errorf("deactivate previous secret: %w", err)
	}

	plainCodes, hashes, err := s.mintBackupCodes()
	if err != nil {
		return model.TotpEnrollment{}, err
	}

	secret := model.TotpSecret{
		ID:          uuid.New(),
		Username:    username,
		SecretKey:   key.Secret(),
		DeviceName:  deviceName,
		Active:      true,
		BackupCodes: hashes,
		CreatedAt:   s.now(),
	}
	if err := s.secrets.Create(ctx, secret); err != nil {
		return model.TotpEnrollment{}, fmt.Errorf("persist totp secret: %w", err)
	}

	s.logger.Info("TOTP service: user enrolled",
		"username", username,
		"device_name", deviceName)

	return model.TotpEnrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		BackupCodes:     plainCodes,
	}, nil
}

// Verify checks a code against the user's active secret for the current
// window and its two neighbors, then against the unconsumed backup codes.
// A TOTP code that matches but was already consumed for its window fails
// with CodeReused; the used-code insert is what makes concurrent
// verification of the same code race-free. A matching backup code is
// removed from the stored set, so it can be presented only once.
func (s *TotpService) Verify(ctx context.Context, username, code string) error {
	secret, err := s.secrets.GetActiveByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return apperrors.NewErrInvalidCode(username)
	}
	if err != nil {
		return fmt.Errorf("get active totp secret: %w", err)
	}

	window := s.now().Unix() / totpStepSeconds
	for _, w := range []int64{window - 1, window, window + 1} {
		expected, err := hotp.GenerateCodeCustom(secret.SecretKey, uint64(w), hotp.ValidateOpts{
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			return fmt.Errorf("compute expected code: %w", err)
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) != 1 {
			continue
		}

		used := model.TotpUsedCode{
			ID:         uuid.New(),
			Username:   username,
			Code:       code,
			TimeWindow: w,
			UsedAt:     s.now(),
		}
		if err := s.usedCodes.Create(ctx, used); err != nil {
			if errors.Is(err, model.ErrDuplicate) {
				s.logger.Info("TOTP service: replayed code rejected",
					"username", username,
					"time_window", w)
				return apperrors.NewErrCodeReused(username)
			}
			return fmt.Errorf("record used code: %w", err)
		}
		return nil
	}

	return s.consumeBackupCode(ctx, secret, code)
}

// consumeBackupCode accepts a backup code at most once: the matching hash
// is removed from the stored set before the check succeeds.
func (s *TotpService) consumeBackupCode(ctx context.Context, secret model.TotpSecret, code string) error {
	for i, hash := range secret.BackupCodes {
		if bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
			continue
		}

		remaining := make([][]byte, 0, len(secret.BackupCodes)-1)
		remaining = append(remaining, secret.BackupCodes[:i]...)
		remaining = append(remaining, secret.BackupCodes[i+1:]...)
		if err := s.secrets.UpdateBackupCodes(ctx, secret.ID, remaining); err != nil {
			return fmt.Errorf("consume backup code: %w", err)
		}

		s.logger.Info("TOTP service: backup code used",
			"username", secret.Username,
			"remaining", len(remaining))
		return nil
	}

	return apperrors.NewErrInvalidCode(secret.Username)
}

// RegenerateBackupCodes replaces the whole backup-code set. The caller
// must present a valid current code, which may itself be a backup code.
func (s *TotpService) RegenerateBackupCodes(ctx context.Context, username, code string) ([]string, error) {
	if err := s.Verify(ctx, username, code); err != nil {
		return nil, err
	}

	secret, err := s.secrets.GetActiveByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return nil, apperrors.NewErrInvalidCode(username)
	}
	if err != nil {
		return nil, fmt.Errorf("get active totp secret: %w", err)
	}

	plainCodes, hashes, err := s.mintBackupCodes()
	if err != nil {
		return nil, err
	}
	if err := s.secrets.UpdateBackupCodes(ctx, secret.ID, hashes); err != nil {
		return nil, fmt.Errorf("store backup codes: %w", err)
	}

	s.logger.Info("TOTP service: backup codes regenerated",
		"username", username)

	return plainCodes, nil
}

func (s *TotpService) mintBackupCodes() ([]string, [][]byte, error) {
	plainCodes := make([]string, 0, backupCodeCount)
	hashes := make([][]byte, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		code, err := randomDigits(backupCodeLength)
		if err != nil {
			return nil, nil, fmt.Errorf("generate backup code: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash backup code: %w", err)
		}
		plainCodes = append(plainCodes, code)
		hashes = append(hashes, hash)
	}
	return plainCodes, hashes, nil
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}

// Enabled reports whether the user has an active second factor.
func (s *TotpService) Enabled(ctx context.Context, username string) (bool, error) {
	_, err := s.secrets.GetActiveByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get active totp secret: %w", err)
	}
	return true, nil
}

// Deactivate turns the second factor off. The caller must prove
// possession of the current device with a valid code.
func (s *TotpService) Deactivate(ctx context.Context, username, code string) error {
	if err := s.Verify(ctx, username, code); err != nil {
		return err
	}
	if err := s.secrets.DeactivateByUsername(ctx, username); err != nil {
		return fmt.Errorf("deactivate totp secret: %w", err)
	}

	s.logger.Info("TOTP service: second factor deactivated",
		"username", username)

	return nil
}

// CleanupUsedCodes drops consumed-code rows older than the given cutoff.
// Rows matter only while their window is within skew tolerance, so the
// cutoff can be generous.
func (s *TotpService) CleanupUsedCodes(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.usedCodes.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("cleanup used codes: %w", err)
	}
	return n, nil
}
