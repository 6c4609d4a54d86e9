package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkarev/authgate/internal/apperrors"
	"github.com/mkarev/authgate/internal/logger"
	"github.com/mkarev/authgate/internal/model"
)

// Auth orchestrates a login attempt: blocklist gate, credential check,
// optional second factor, token issue. Every terminal failure maps to a
// taxonomy error; nothing is retried here.
type Auth struct {
	credentials  model.CredentialStore
	blocks       model.BlockListStore
	attempts     model.FailedAttemptPolicy
	tokenService *TokenService
	totpService  *TotpService
	bcryptCost   int
	logger       *logger.Logger
}

func NewAuth(
	credentials model.CredentialStore,
	blocks model.BlockListStore,
	attempts model.FailedAttemptPolicy,
	tokenService *TokenService,
	totpService *TotpService,
	bcryptCost int,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		credentials:  credentials,
		blocks:       blocks,
		attempts:     attempts,
		tokenService: tokenService,
		totpService:  totpService,
		bcryptCost:   bcryptCost,
		logger:       logger,
	}
}

// AuthResult is the outcome of a successful credential check. When the
// account has an active second factor no tokens are issued yet; the
// caller must complete the login with VerifyTotp.
type AuthResult struct {
	SecondFactorRequired bool
	Tokens               model.TokenPair
}

// Authenticate verifies a credential set and, unless a second factor is
// required, issues a token pair for a fresh session.
func (a *Auth) Authenticate(ctx context.Context, username, password, clientIP string) (AuthResult, error) {
	a.logger.Debug("Auth service: authenticating user",
		"username", username,
		"client_ip", clientIP)

	credential, err := a.gate(ctx, username, clientIP)
	if err != nil {
		return AuthResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword(credential.PasswordHash, []byte(password)); err != nil {
		a.recordFailure(ctx, username, clientIP)
		a.logger.Info("Auth service: password mismatch",
			"username", username,
			"client_ip", clientIP)
		return AuthResult{}, apperrors.NewErrInvalidCredentials()
	}

	if err := a.attempts.Reset(ctx, username); err != nil {
		a.logger.Error("Auth service: failed to reset attempts",
			"username", username,
			"error", err.Error())
	}

	enabled, err := a.totpService.Enabled(ctx, username)
	if err != nil {
		return AuthResult{}, err
	}
	if enabled {
		a.logger.Info("Auth service: second factor required",
			"username", username)
		return AuthResult{SecondFactorRequired: true}, nil
	}

	pair, err := a.issuePair(ctx, username)
	if err != nil {
		return AuthResult{}, err
	}

	a.logger.Info("Auth service: user authenticated",
		"username", username,
		"session_id", pair.SessionID)

	return AuthResult{Tokens: pair}, nil
}

// VerifyTotp completes a login for an account with an active second
// factor: the code is verified with replay protection, then a token pair
// is issued. The blocklist and the account state are checked again here,
// so an identity blocked or disabled between the password step and the
// code step gets no tokens.
func (a *Auth) VerifyTotp(ctx context.Context, username, code, clientIP string) (model.TokenPair, error) {
	if _, err := a.gate(ctx, username, clientIP); err != nil {
		return model.TokenPair{}, err
	}

	if err := a.totpService.Verify(ctx, username, code); err != nil {
		if apperrors.KindOf(err) != apperrors.KindUnknown {
			a.recordFailure(ctx, username, clientIP)
		}
		return model.TokenPair{}, err
	}

	if err := a.attempts.Reset(ctx, username); err != nil {
		a.logger.Error("Auth service: failed to reset attempts",
			"username", username,
			"error", err.Error())
	}

	pair, err := a.issuePair(ctx, username)
	if err != nil {
		return model.TokenPair{}, err
	}

	a.logger.Info("Auth service: second factor verified",
		"username", username,
		"session_id", pair.SessionID)

	return pair, nil
}

// gate runs the checks every login step must pass: no active block for
// the identity or IP, the credential exists, and the account is not
// disabled. A missing or disabled account counts as a failed attempt.
func (a *Auth) gate(ctx context.Context, username, clientIP string) (model.Credential, error) {
	blocked, err := a.blocks.Active(ctx, username, clientIP, time.Now())
	if err != nil {
		return model.Credential{}, fmt.Errorf("check block list: %w", err)
	}
	if blocked {
		a.logger.Info("Auth service: blocked authentication attempt",
			"username", username,
			"client_ip", clientIP)
		return model.Credential{}, apperrors.NewErrBlocked()
	}

	credential, err := a.credentials.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		a.recordFailure(ctx, username, clientIP)
		return model.Credential{}, apperrors.NewErrUserNotFound(username)
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential by username: %w", err)
	}
	if credential.DisabledAt != nil {
		a.recordFailure(ctx, username, clientIP)
		return model.Credential{}, apperrors.NewErrUserNotFound(username)
	}

	return credential, nil
}

func (a *Auth) recordFailure(ctx context.Context, username, clientIP string) {
	if err := a.attempts.RecordFailure(ctx, username, clientIP); err != nil {
		a.logger.Error("Auth service: failed to record attempt",
			"username", username,
			"error", err.Error())
	}
}

// RefreshToken rotates a token pair.
func (a *Auth) RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	return a.tokenService.Refresh(ctx, refreshToken)
}

// Revoke invalidates an access token before its natural expiry.
func (a *Auth) Revoke(ctx context.Context, token string) error {
	return a.tokenService.Revoke(ctx, token)
}

// Validate resolves an access token to its claims.
func (a *Auth) Validate(ctx context.Context, token string) (model.TokenClaims, error) {
	return a.tokenService.Validate(ctx, token)
}

// Register creates a credential. The username must be unused.
func (a *Auth) Register(ctx context.Context, username, password string, roles []string) (model.Credential, error) {
	a.logger.Debug("Auth service: registering user",
		"username", username)

	_, err := a.credentials.GetByUsername(ctx, username)
	if err == nil {
		return model.Credential{}, apperrors.NewErrConflict(fmt.Sprintf("username %q already taken", username))
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Credential{}, fmt.Errorf("get credential by username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return model.Credential{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	credential := model.Credential{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := a.credentials.Create(ctx, credential)
	if errors.Is(err, model.ErrDuplicate) {
		return model.Credential{}, apperrors.NewErrConflict(fmt.Sprintf("username %q already taken", username))
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("create credential: %w", err)
	}

	a.logger.Info("Auth service: user registered",
		"username", username)

	return created, nil
}

// ChangePassword replaces the stored hash after verifying the old
// password, then kills every live session of the user.
func (a *Auth) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	credential, err := a.credentials.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return apperrors.NewErrUserNotFound(username)
	}
	if err != nil {
		return fmt.Errorf("get credential by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(credential.PasswordHash, []byte(oldPassword)); err != nil {
		return apperrors.NewErrInvalidCredentials()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.credentials.UpdatePassword(ctx, username, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := a.tokenService.RevokeAllForUser(ctx, username); err != nil {
		return err
	}

	a.logger.Info("Auth service: password changed",
		"username", username)

	return nil
}

// Disable soft-disables an account and kills its live sessions. The
// credential row survives.
func (a *Auth) Disable(ctx context.Context, username string) error {
	if err := a.credentials.Disable(ctx, username); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apperrors.NewErrUserNotFound(username)
		}
		return fmt.Errorf("disable credential: %w", err)
	}

	if err := a.tokenService.RevokeAllForUser(ctx, username); err != nil {
		return err
	}

	a.logger.Info("Auth service: user disabled",
		"username", username)

	return nil
}

func (a *Auth) issuePair(ctx context.Context, username string) (model.TokenPair, error) {
	return a.tokenService.Issue(ctx, username, uuid.NewString(), IssueOptions{})
}
