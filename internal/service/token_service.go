package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/authgate/internal/apperrors"
	"github.com/mkarev/authgate/internal/logger"
	"github.com/mkarev/authgate/internal/model"
)

// TokenService provides high-level operations for issuing, validating,
// refreshing, and revoking token pairs. It composes the TokenManager with
// the active-token set and the invalidated-token denylist.
type TokenService struct {
	manager  model.TokenManager
	active   model.ActiveTokenStore
	denylist model.InvalidatedTokenStore
	logger   *logger.Logger
}

func NewTokenService(manager model.TokenManager, active model.ActiveTokenStore, denylist model.InvalidatedTokenStore, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, active: active, denylist: denylist, logger: logger}
}

// IssueOptions controls behavior when the session already has a live pair.
type IssueOptions struct {
	// ReplaceExisting supersedes a live pair for the same (username,
	// session) instead of failing with Conflict. The superseded access
	// token is denylisted.
	ReplaceExisting bool
}

// Issue creates a new token pair for the given session. A live pair for
// the same (username, sessionID) fails with Conflict unless
// opts.ReplaceExisting is set.
func (s *TokenService) Issue(ctx context.Context, username, sessionID string, opts IssueOptions) (model.TokenPair, error) {
	pair, record, err := s.mint(username, sessionID)
	if err != nil {
		return model.TokenPair{}, err
	}

	err = s.active.Create(ctx, record)
	if errors.Is(err, model.ErrDuplicate) {
		if err := s.supersedeSession(ctx, username, sessionID, opts.ReplaceExisting); err != nil {
			return model.TokenPair{}, err
		}
		err = s.active.Create(ctx, record)
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("persist token pair: %w", err)
	}

	return pair, nil
}

// supersedeSession clears the existing row for a session so a new pair
// can be inserted. A live row is denylisted first and only removed when
// replacement was requested; an already-dead row is removed regardless.
func (s *TokenService) supersedeSession(ctx context.Context, username, sessionID string, replace bool) error {
	existing, err := s.active.GetBySession(ctx, username, sessionID)
	if errors.Is(err, model.ErrNotFound) {
		// Lost a race with another delete; the insert retry will decide.
		return nil
	}
	if err != nil {
		return fmt.Errorf("get session token pair: %w", err)
	}

	live := time.Now().Before(existing.RefreshExpiresAt)
	if live && !replace {
		return apperrors.NewErrConflict(fmt.Sprintf("session %q already has an active token pair", sessionID))
	}
	if live {
		if err := s.denylistRecord(ctx, existing); err != nil {
			return err
		}
	}
	if err := s.active.DeleteByTokenHash(ctx, existing.TokenHash); err != nil {
		return fmt.Errorf("delete superseded token pair: %w", err)
	}

	return nil
}

// Validate checks an access token against the denylist, its own expiry,
// and the active set. The denylist is consulted first: a revoked token is
// invalid no matter what its claims say.
func (s *TokenService) Validate(ctx context.Context, token string) (model.TokenClaims, error) {
	hash := hashToken(token)

	denied, err := s.denylist.Exists(ctx, hash)
	if err != nil {
		return model.TokenClaims{}, fmt.Errorf("check denylist: %w", err)
	}
	if denied {
		return model.TokenClaims{}, apperrors.NewErrInvalidToken()
	}

	claims, err := s.manager.ParseAccessToken(token)
	if errors.Is(err, model.ErrTokenExpired) {
		return model.TokenClaims{}, apperrors.NewErrExpired()
	}
	if err != nil {
		return model.TokenClaims{}, apperrors.NewErrInvalidToken()
	}

	if _, err := s.active.GetByTokenHash(ctx, hash); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenClaims{}, apperrors.NewErrInvalidToken()
		}
		return model.TokenClaims{}, fmt.Errorf("get active token: %w", err)
	}

	return claims, nil
}

// Revoke moves an access token onto the denylist and removes its pair
// from the active set. Revoking the same token twice is not an error; an
// already-expired token is left to the sweep.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.manager.ParseAccessToken(token)
	if errors.Is(err, model.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return apperrors.NewErrInvalidToken()
	}

	hash := hashToken(token)
	entry := model.InvalidatedToken{
		ID:        uuid.New(),
		TokenHash: hash,
		Username:  claims.Username,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.denylist.Create(ctx, entry); err != nil {
		return fmt.Errorf("denylist token: %w", err)
	}
	if err := s.active.DeleteByTokenHash(ctx, hash); err != nil {
		return fmt.Errorf("delete active token: %w", err)
	}

	s.logger.Info("Token service: token revoked",
		"username", claims.Username,
		"session_id", claims.SessionID)

	return nil
}

// Refresh rotates a token pair. The active row is claimed atomically by
// its refresh-token hash, so of several concurrent calls with the same
// refresh token exactly one succeeds; the losers get InvalidRefreshToken.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.manager.ParseRefreshToken(refreshToken)
	if err != nil {
		return model.TokenPair{}, apperrors.NewErrInvalidRefreshToken()
	}

	record, err := s.active.ClaimByRefreshHash(ctx, hashToken(refreshToken))
	if errors.Is(err, model.ErrNotFound) {
		return model.TokenPair{}, apperrors.NewErrInvalidRefreshToken()
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("claim refresh token: %w", err)
	}

	// The old access token may still be unexpired; rotation kills the
	// whole pair.
	if err := s.denylistRecord(ctx, record); err != nil {
		return model.TokenPair{}, err
	}

	pair, newRecord, err := s.mint(claims.Username, claims.SessionID)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := s.active.Create(ctx, newRecord); err != nil {
		return model.TokenPair{}, fmt.Errorf("persist rotated token pair: %w", err)
	}

	s.logger.Info("Token service: token pair rotated",
		"username", claims.Username,
		"session_id", claims.SessionID)

	return pair, nil
}

// RevokeAllForUser kills every live session of a user.
func (s *TokenService) RevokeAllForUser(ctx context.Context, username string) error {
	records, err := s.active.ListByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("list active tokens: %w", err)
	}

	for _, record := range records {
		if err := s.denylistRecord(ctx, record); err != nil {
			return err
		}
		if err := s.active.DeleteByTokenHash(ctx, record.TokenHash); err != nil {
			return fmt.Errorf("delete active token: %w", err)
		}
	}

	return nil
}

// SweepResult reports how many expired rows a sweep removed.
type SweepResult struct {
	Active      int64
	Invalidated int64
}

// Sweep deletes expired rows from the active set and the denylist. Run on
// a schedule, not in any request path.
func (s *TokenService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	activeN, err := s.active.DeleteExpired(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("sweep active tokens: %w", err)
	}
	deniedN, err := s.denylist.DeleteExpired(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("sweep invalidated tokens: %w", err)
	}

	return SweepResult{Active: activeN, Invalidated: deniedN}, nil
}

func (s *TokenService) mint(username, sessionID string) (model.TokenPair, model.ActiveToken, error) {
	access, accessExp, err := s.manager.GenerateAccessToken(username, sessionID)
	if err != nil {
		return model.TokenPair{}, model.ActiveToken{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, _, refreshExp, err := s.manager.GenerateRefreshToken(username, sessionID)
	if err != nil {
		return model.TokenPair{}, model.ActiveToken{}, fmt.Errorf("issue refresh: %w", err)
	}

	now := time.Now()
	record := model.ActiveToken{
		ID:               uuid.New(),
		Username:         username,
		SessionID:        sessionID,
		TokenHash:        hashToken(access),
		RefreshHash:      hashToken(refresh),
		IssuedAt:         now,
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
		CreatedAt:        now,
	}
	pair := model.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		SessionID:        sessionID,
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
	}

	return pair, record, nil
}

func (s *TokenService) denylistRecord(ctx context.Context, record model.ActiveToken) error {
	entry := model.InvalidatedToken{
		ID:        uuid.New(),
		TokenHash: record.TokenHash,
		Username:  record.Username,
		SessionID: record.SessionID,
		ExpiresAt: record.ExpiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.denylist.Create(ctx, entry); err != nil {
		return fmt.Errorf("denylist token: %w", err)
	}
	return nil
}

func hashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
