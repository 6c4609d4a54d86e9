package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/authgate/internal/logger"
	"github.com/mkarev/authgate/internal/model"
)

// AttemptPolicy counts consecutive authentication failures per username
// and writes a temporary block entry once the configured threshold is
// reached. A threshold of zero disables automatic blocking; manually
// created blocks are unaffected either way.
type AttemptPolicy struct {
	attempts      model.AttemptStore
	blocks        model.BlockListStore
	maxAttempts   int
	blockDuration time.Duration
	logger        *logger.Logger
}

var _ model.FailedAttemptPolicy = (*AttemptPolicy)(nil)

func NewAttemptPolicy(attempts model.AttemptStore, blocks model.BlockListStore, maxAttempts int, blockDuration time.Duration, logger *logger.Logger) *AttemptPolicy {
	return &AttemptPolicy{
		attempts:      attempts,
		blocks:        blocks,
		maxAttempts:   maxAttempts,
		blockDuration: blockDuration,
		logger:        logger,
	}
}

// RecordFailure registers one failed attempt and blocks the identity when
// the threshold is hit. The counter resets together with the block so a
// later expiry starts the count from zero.
func (p *AttemptPolicy) RecordFailure(ctx context.Context, username, ipAddress string) error {
	if p.maxAttempts <= 0 {
		return nil
	}

	now := time.Now()
	count, err := p.attempts.RegisterFailure(ctx, username, ipAddress, now)
	if err != nil {
		return fmt.Errorf("register failed attempt: %w", err)
	}
	if count < p.maxAttempts {
		return nil
	}

	expiresAt := now.Add(p.blockDuration)
	entry := model.BlockEntry{
		ID:             uuid.New(),
		Username:       username,
		IPAddress:      ipAddress,
		Reason:         "too many failed login attempts",
		FailedAttempts: count,
		BlockedAt:      now,
		ExpiresAt:      &expiresAt,
	}
	if err := p.blocks.Create(ctx, entry); err != nil {
		return fmt.Errorf("create block entry: %w", err)
	}
	if err := p.attempts.Reset(ctx, username); err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}

	p.logger.Info("Attempt policy: identity blocked",
		"username", username,
		"ip_address", ipAddress,
		"failed_attempts", count,
		"expires_at", expiresAt)

	return nil
}

// Reset clears the failure counter after a successful authentication.
func (p *AttemptPolicy) Reset(ctx context.Context, username string) error {
	if err := p.attempts.Reset(ctx, username); err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	return nil
}
