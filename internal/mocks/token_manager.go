package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mkarev/authgate/internal/model"
)

// TokenManager is a testify mock for model.TokenManager.
type TokenManager struct {
	mock.Mock
}

var _ model.TokenManager = (*TokenManager)(nil)

func (m *TokenManager) GenerateAccessToken(username, sessionID string) (string, time.Time, error) {
	args := m.Called(username, sessionID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *TokenManager) GenerateRefreshToken(username, sessionID string) (string, string, time.Time, error) {
	args := m.Called(username, sessionID)
	return args.String(0), args.String(1), args.Get(2).(time.Time), args.Error(3)
}

func (m *TokenManager) ParseAccessToken(token string) (model.TokenClaims, error) {
	args := m.Called(token)
	return args.Get(0).(model.TokenClaims), args.Error(1)
}

func (m *TokenManager) ParseRefreshToken(token string) (model.TokenClaims, error) {
	args := m.Called(token)
	return args.Get(0).(model.TokenClaims), args.Error(1)
}
