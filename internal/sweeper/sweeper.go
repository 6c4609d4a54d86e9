// Package sweeper runs the periodic cleanup of expired records. It is
// the scheduler collaborator of the token and TOTP stores: nothing here
// is user-facing.
package sweeper

import (
	"context"
	"time"

	"github.com/mkarev/authgate/internal/logger"
	"github.com/mkarev/authgate/internal/service"
)

// usedCodeRetention keeps consumed TOTP codes around well past the skew
// tolerance before deleting them.
const usedCodeRetention = time.Hour

// TokenSweep removes expired active and invalidated token rows.
type TokenSweep interface {
	Sweep(ctx context.Context, now time.Time) (service.SweepResult, error)
}

// UsedCodeCleanup removes stale consumed TOTP codes.
type UsedCodeCleanup interface {
	CleanupUsedCodes(ctx context.Context, before time.Time) (int64, error)
}

// BlockCleanup removes expired block entries.
type BlockCleanup interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper ticks at a fixed interval and delegates cleanup to its
// collaborators. It owns no other goroutines and stops when its context
// is cancelled.
type Sweeper struct {
	tokens    TokenSweep
	usedCodes UsedCodeCleanup
	blocks    BlockCleanup
	interval  time.Duration
	logger    *logger.Logger
}

func New(tokens TokenSweep, usedCodes UsedCodeCleanup, blocks BlockCleanup, interval time.Duration, logger *logger.Logger) *Sweeper {
	return &Sweeper{
		tokens:    tokens,
		usedCodes: usedCodes,
		blocks:    blocks,
		interval:  interval,
		logger:    logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()

	result, err := s.tokens.Sweep(ctx, now)
	if err != nil {
		s.logger.Error("Sweeper: token sweep failed", "error", err.Error())
	}

	codes, err := s.usedCodes.CleanupUsedCodes(ctx, now.Add(-usedCodeRetention))
	if err != nil {
		s.logger.Error("Sweeper: used-code cleanup failed", "error", err.Error())
	}

	blocks, err := s.blocks.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("Sweeper: block cleanup failed", "error", err.Error())
	}

	s.logger.Debug("Sweeper: sweep complete",
		"active_tokens", result.Active,
		"invalidated_tokens", result.Invalidated,
		"used_codes", codes,
		"block_entries", blocks)
}
