package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mkarev/authgate/internal/model"
)

// CredentialStore is a testify mock for model.CredentialStore.
type CredentialStore struct {
	mock.Mock
}

var _ model.CredentialStore = (*CredentialStore)(nil)

func (m *CredentialStore) GetByUsername(ctx context.Context, username string) (model.Credential, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *CredentialStore) GetByID(ctx context.Context, id uuid.UUID) (model.Credential, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *CredentialStore) Create(ctx context.Context, credential model.Credential) (model.Credential, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *CredentialStore) UpdatePassword(ctx context.Context, username string, passwordHash []byte) error {
	args := m.Called(ctx, username, passwordHash)
	return args.Error(0)
}

func (m *CredentialStore) Disable(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// ActiveTokenStore is a testify mock for model.ActiveTokenStore.
type ActiveTokenStore struct {
	mock.Mock
}

var _ model.ActiveTokenStore = (*ActiveTokenStore)(nil)

func (m *ActiveTokenStore) Create(ctx context.Context, token model.ActiveToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *ActiveTokenStore) GetByTokenHash(ctx context.Context, tokenHash []byte) (model.ActiveToken, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(model.ActiveToken), args.Error(1)
}

func (m *ActiveTokenStore) GetBySession(ctx context.Context, username, sessionID string) (model.ActiveToken, error) {
	args := m.Called(ctx, username, sessionID)
	return args.Get(0).(model.ActiveToken), args.Error(1)
}

func (m *ActiveTokenStore) ClaimByRefreshHash(ctx context.Context, refreshHash []byte) (model.ActiveToken, error) {
	args := m.Called(ctx, refreshHash)
	return args.Get(0).(model.ActiveToken), args.Error(1)
}

func (m *ActiveTokenStore) DeleteByTokenHash(ctx context.Context, tokenHash []byte) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *ActiveTokenStore) ListByUsername(ctx context.Context, username string) ([]model.ActiveToken, error) {
	args := m.Called(ctx, username)
	return args.Get(0).([]model.ActiveToken), args.Error(1)
}

func (m *ActiveTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// InvalidatedTokenStore is a testify mock for model.InvalidatedTokenStore.
type InvalidatedTokenStore struct {
	mock.Mock
}

var _ model.InvalidatedTokenStore = (*InvalidatedTokenStore)(nil)

func (m *InvalidatedTokenStore) Create(ctx context.Context, token model.InvalidatedToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *InvalidatedTokenStore) Exists(ctx context.Context, tokenHash []byte) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *InvalidatedTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// TotpSecretStore is a testify mock for model.TotpSecretStore.
type TotpSecretStore struct {
	mock.Mock
}

var _ model.TotpSecretStore = (*TotpSecretStore)(nil)

func (m *TotpSecretStore) Create(ctx context.Context, secret model.TotpSecret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

func (m *TotpSecretStore) GetActiveByUsername(ctx context.Context, username string) (model.TotpSecret, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.TotpSecret), args.Error(1)
}

func (m *TotpSecretStore) UpdateBackupCodes(ctx context.Context, id uuid.UUID, hashes [][]byte) error {
	args := m.Called(ctx, id, hashes)
	return args.Error(0)
}

func (m *TotpSecretStore) DeactivateByUsername(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// TotpUsedCodeStore is a testify mock for model.TotpUsedCodeStore.
type TotpUsedCodeStore struct {
	mock.Mock
}

var _ model.TotpUsedCodeStore = (*TotpUsedCodeStore)(nil)

func (m *TotpUsedCodeStore) Create(ctx context.Context, code model.TotpUsedCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *TotpUsedCodeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// BlockListStore is a testify mock for model.BlockListStore.
type BlockListStore struct {
	mock.Mock
}

var _ model.BlockListStore = (*BlockListStore)(nil)

func (m *BlockListStore) Create(ctx context.Context, entry model.BlockEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *BlockListStore) Active(ctx context.Context, username, ipAddress string, now time.Time) (bool, error) {
	args := m.Called(ctx, username, ipAddress, now)
	return args.Bool(0), args.Error(1)
}

func (m *BlockListStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// AttemptStore is a testify mock for model.AttemptStore.
type AttemptStore struct {
	mock.Mock
}

var _ model.AttemptStore = (*AttemptStore)(nil)

func (m *AttemptStore) RegisterFailure(ctx context.Context, username, ipAddress string, now time.Time) (int, error) {
	args := m.Called(ctx, username, ipAddress, now)
	return args.Int(0), args.Error(1)
}

func (m *AttemptStore) Reset(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// FailedAttemptPolicy is a testify mock for model.FailedAttemptPolicy.
type FailedAttemptPolicy struct {
	mock.Mock
}

var _ model.FailedAttemptPolicy = (*FailedAttemptPolicy)(nil)

func (m *FailedAttemptPolicy) RecordFailure(ctx context.Context, username, ipAddress string) error {
	args := m.Called(ctx, username, ipAddress)
	return args.Error(0)
}

func (m *FailedAttemptPolicy) Reset(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}
