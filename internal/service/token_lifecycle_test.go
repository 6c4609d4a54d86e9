package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarev/authgate/internal/apperrors"
	"github.com/mkarev/authgate/internal/testutil"
	"github.com/mkarev/authgate/internal/token"
)

// Lifecycle tests run the token service against a real JWT manager and
// in-memory stores, exercising full state transitions.

func newLifecycleService() *TokenService {
	manager := token.NewJWT("test-secret", 15*time.Minute, 720*time.Hour)
	return NewTokenService(manager, newMemActiveTokenStore(), newMemInvalidatedTokenStore(), testutil.MakeNoopLogger())
}

func TestTokenLifecycle_IssueThenValidate(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService()

	pair, err := svc.Issue(ctx, "alice", "session-1", IssueOptions{})
	require.NoError(t, err)

	claims, err := svc.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "session-1", claims.SessionID)
}

func TestTokenLifecycle_RevokeThenValidate(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService()

	pair, err := svc.Issue(ctx, "alice", "session-1", IssueOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.AccessToken))

	_, err = svc.Validate(ctx, pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidToken, apperrors.KindOf(err))
}

func TestTokenLifecycle_RefreshRotatesPair(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService()

	pair, err := svc.Issue(ctx, "alice", "session-1", IssueOptions{})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "session-1", rotated.SessionID)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	// The old pair is dead on both sides.
	_, err = svc.Validate(ctx, pair.AccessToken)
	assert.Equal(t, apperrors.KindInvalidToken, apperrors.KindOf(err))
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, apperrors.KindInvalidRefreshToken, apperrors.KindOf(err))

	// The rotated pair works.
	_, err = svc.Validate(ctx, rotated.AccessToken)
	require.NoError(t, err)
}

func TestTokenLifecycle_ConcurrentRefresh_OneWinner(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService()

	pair, err := svc.Issue(ctx, "alice", "session-1", IssueOptions{})
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, apperrors.KindInvalidRefreshToken, apperrors.KindOf(err))
	}
	assert.Equal(t, 1, successes)
}

func TestTokenLifecycle_SessionConflictAndReplace(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService()

	first, err := svc.Issue(ctx, "alice", "session-1", IssueOptions{})
	require.NoError(t, err)

	_, err = svc.Issue(ctx, "alice", "session-1", IssueOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	second, err := svc.Issue(ctx, "alice", "session-1", IssueOptions{ReplaceExisting: true})
	require.NoError(t, err)

	// The replaced access token is denylisted, the new one is valid.
	_, err = svc.Validate(ctx, first.AccessToken)
	assert.Equal(t, apperrors.KindInvalidToken, apperrors.KindOf(err))
	_, err = svc.Validate(ctx, second.AccessToken)
	require.NoError(t, err)
}

func TestTokenLifecycle_SweepRemovesExpired(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService()

	pair, err := svc.Issue(ctx, "alice", "session-1", IssueOptions{})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, pair.AccessToken))

	// Far future: everything has expired by then.
	result, err := svc.Sweep(ctx, time.Now().Add(10000*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Active) // revoke already removed the active row
	assert.Equal(t, int64(1), result.Invalidated)

	_, err = svc.Issue(ctx, "bob", "session-2", IssueOptions{})
	require.NoError(t, err)
	result, err = svc.Sweep(ctx, time.Now().Add(10000*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Active)
}
