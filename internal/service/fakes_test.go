package service

import (
	"context"
	"sync"
	"time"

	"github.com/mkarev/authgate/internal/model"
)

// In-memory stores backing lifecycle tests that need real state
// transitions (issue, revoke, rotate) rather than canned expectations.
// Their locking mirrors what the unique constraints guarantee in
// postgres: claim and used-code insert are atomic.

type memActiveTokenStore struct {
	mu   sync.Mutex
	rows map[string]model.ActiveToken // keyed by token hash
}

func newMemActiveTokenStore() *memActiveTokenStore {
	return &memActiveTokenStore{rows: make(map[string]model.ActiveToken)}
}

func (s *memActiveTokenStore) Create(_ context.Context, token model.ActiveToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Username == token.Username && row.SessionID == token.SessionID {
			return model.ErrDuplicate
		}
	}
	s.rows[string(token.TokenHash)] = token
	return nil
}

func (s *memActiveTokenStore) GetByTokenHash(_ context.Context, tokenHash []byte) (model.ActiveToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[string(tokenHash)]
	if !ok {
		return model.ActiveToken{}, model.ErrNotFound
	}
	return row, nil
}

func (s *memActiveTokenStore) GetBySession(_ context.Context, username, sessionID string) (model.ActiveToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Username == username && row.SessionID == sessionID {
			return row, nil
		}
	}
	return model.ActiveToken{}, model.ErrNotFound
}

func (s *memActiveTokenStore) ClaimByRefreshHash(_ context.Context, refreshHash []byte) (model.ActiveToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, row := range s.rows {
		if string(row.RefreshHash) == string(refreshHash) {
			delete(s.rows, key)
			return row, nil
		}
	}
	return model.ActiveToken{}, model.ErrNotFound
}

func (s *memActiveTokenStore) DeleteByTokenHash(_ context.Context, tokenHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, string(tokenHash))
	return nil
}

func (s *memActiveTokenStore) ListByUsername(_ context.Context, username string) ([]model.ActiveToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.ActiveToken{}
	for _, row := range s.rows {
		if row.Username == username {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memActiveTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, row := range s.rows {
		if !row.RefreshExpiresAt.After(now) {
			delete(s.rows, key)
			n++
		}
	}
	return n, nil
}

type memInvalidatedTokenStore struct {
	mu   sync.Mutex
	rows map[string]model.InvalidatedToken
}

func newMemInvalidatedTokenStore() *memInvalidatedTokenStore {
	return &memInvalidatedTokenStore{rows: make(map[string]model.InvalidatedToken)}
}

func (s *memInvalidatedTokenStore) Create(_ context.Context, token model.InvalidatedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[string(token.TokenHash)]; !ok {
		s.rows[string(token.TokenHash)] = token
	}
	return nil
}

func (s *memInvalidatedTokenStore) Exists(_ context.Context, tokenHash []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[string(tokenHash)]
	return ok, nil
}

func (s *memInvalidatedTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, row := range s.rows {
		if !row.ExpiresAt.After(now) {
			delete(s.rows, key)
			n++
		}
	}
	return n, nil
}
