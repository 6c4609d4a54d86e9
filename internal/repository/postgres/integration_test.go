//go:build integration

package postgres_test

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mkarev/authgate/internal/model"
	repo "github.com/mkarev/authgate/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "authgate_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/authgate_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func hash(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

func activeToken(username, sessionID, token, refresh string, ttl time.Duration) model.ActiveToken {
	now := time.Now()
	return model.ActiveToken{
		ID:               uuid.New(),
		Username:         username,
		SessionID:        sessionID,
		TokenHash:        hash(token),
		RefreshHash:      hash(refresh),
		IssuedAt:         now,
		ExpiresAt:        now.Add(ttl),
		RefreshExpiresAt: now.Add(ttl * 2),
		CreatedAt:        now,
	}
}

func TestRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	t.Run("credential_repository", func(t *testing.T) {
		cr := repo.NewCredentialRepository(conn)
		c := model.Credential{
			ID:           uuid.New(),
			Username:     "alice",
			PasswordHash: []byte("bcrypt-hash"),
			Roles:        []string{"USER", "ADMIN"},
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		saved, err := cr.Create(ctx, c)
		require.NoError(t, err)
		require.Equal(t, c.ID, saved.ID)

		_, err = cr.Create(ctx, model.Credential{ID: uuid.New(), Username: "alice", PasswordHash: []byte("x"), CreatedAt: time.Now(), UpdatedAt: time.Now()})
		require.ErrorIs(t, err, model.ErrDuplicate)

		byName, err := cr.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, c.ID, byName.ID)
		require.Equal(t, []string{"USER", "ADMIN"}, byName.Roles)
		require.Nil(t, byName.DisabledAt)

		byID, err := cr.GetByID(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", byID.Username)

		_, err = cr.GetByUsername(ctx, "nobody")
		require.ErrorIs(t, err, model.ErrNotFound)

		require.NoError(t, cr.UpdatePassword(ctx, "alice", []byte("new-hash")))
		updated, err := cr.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, []byte("new-hash"), updated.PasswordHash)

		require.NoError(t, cr.Disable(ctx, "alice"))
		disabled, err := cr.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, disabled.DisabledAt)

		require.ErrorIs(t, cr.Disable(ctx, "nobody"), model.ErrNotFound)
	})

	t.Run("active_token_repository", func(t *testing.T) {
		ar := repo.NewActiveTokenRepository(conn)
		tok := activeToken("bob", "session-1", "access-1", "refresh-1", time.Hour)
		require.NoError(t, ar.Create(ctx, tok))

		got, err := ar.GetByTokenHash(ctx, tok.TokenHash)
		require.NoError(t, err)
		require.Equal(t, tok.ID, got.ID)

		bySession, err := ar.GetBySession(ctx, "bob", "session-1")
		require.NoError(t, err)
		require.Equal(t, tok.ID, bySession.ID)

		// Second pair for the same session violates the unique constraint.
		dup := activeToken("bob", "session-1", "access-dup", "refresh-dup", time.Hour)
		require.ErrorIs(t, ar.Create(ctx, dup), model.ErrDuplicate)

		claimed, err := ar.ClaimByRefreshHash(ctx, tok.RefreshHash)
		require.NoError(t, err)
		require.Equal(t, tok.ID, claimed.ID)

		// The claim removed the row, so a second claim finds nothing.
		_, err = ar.ClaimByRefreshHash(ctx, tok.RefreshHash)
		require.ErrorIs(t, err, model.ErrNotFound)

		tok2 := activeToken("bob", "session-2", "access-2", "refresh-2", time.Hour)
		tok3 := activeToken("bob", "session-3", "access-3", "refresh-3", time.Hour)
		require.NoError(t, ar.Create(ctx, tok2))
		require.NoError(t, ar.Create(ctx, tok3))

		list, err := ar.ListByUsername(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, list, 2)

		require.NoError(t, ar.DeleteByTokenHash(ctx, tok2.TokenHash))
		_, err = ar.GetByTokenHash(ctx, tok2.TokenHash)
		require.ErrorIs(t, err, model.ErrNotFound)

		expired := activeToken("bob", "session-4", "access-4", "refresh-4", -time.Hour)
		require.NoError(t, ar.Create(ctx, expired))
		deleted, err := ar.DeleteExpired(ctx, time.Now())
		require.NoError(t, err)
		require.GreaterOrEqual(t, deleted, int64(1))
	})

	t.Run("invalidated_token_repository", func(t *testing.T) {
		ir := repo.NewInvalidatedTokenRepository(conn)
		entry := model.InvalidatedToken{
			ID:        uuid.New(),
			TokenHash: hash("revoked-access"),
			Username:  "bob",
			SessionID: "session-1",
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: time.Now(),
		}
		require.NoError(t, ir.Create(ctx, entry))

		// Revocation is idempotent: the same hash again is not an error.
		entry.ID = uuid.New()
		require.NoError(t, ir.Create(ctx, entry))

		exists, err := ir.Exists(ctx, entry.TokenHash)
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = ir.Exists(ctx, hash("never-revoked"))
		require.NoError(t, err)
		require.False(t, exists)

		stale := model.InvalidatedToken{
			ID:        uuid.New(),
			TokenHash: hash("stale-access"),
			Username:  "bob",
			SessionID: "session-2",
			ExpiresAt: time.Now().Add(-time.Hour),
			CreatedAt: time.Now(),
		}
		require.NoError(t, ir.Create(ctx, stale))
		deleted, err := ir.DeleteExpired(ctx, time.Now())
		require.NoError(t, err)
		require.GreaterOrEqual(t, deleted, int64(1))
	})

	t.Run("totp_secret_repository", func(t *testing.T) {
		sr := repo.NewTotpSecretRepository(conn)
		first := model.TotpSecret{
			ID:          uuid.New(),
			Username:    "carol",
			SecretKey:   "JBSWY3DPEHPK3PXP",
			Active:      true,
			BackupCodes: [][]byte{[]byte("hash-a"), []byte("hash-b")},
			CreatedAt:   time.Now(),
		}
		require.NoError(t, sr.Create(ctx, first))

		active, err := sr.GetActiveByUsername(ctx, "carol")
		require.NoError(t, err)
		require.Equal(t, first.ID, active.ID)
		require.Len(t, active.BackupCodes, 2)

		// Consuming a backup code shrinks the stored set.
		require.NoError(t, sr.UpdateBackupCodes(ctx, first.ID, [][]byte{[]byte("hash-a")}))
		active, err = sr.GetActiveByUsername(ctx, "carol")
		require.NoError(t, err)
		require.Equal(t, [][]byte{[]byte("hash-a")}, active.BackupCodes)

		require.ErrorIs(t, sr.UpdateBackupCodes(ctx, uuid.New(), nil), model.ErrNotFound)

		// Re-enrollment: deactivate, then a fresh active secret.
		require.NoError(t, sr.DeactivateByUsername(ctx, "carol"))
		_, err = sr.GetActiveByUsername(ctx, "carol")
		require.ErrorIs(t, err, model.ErrNotFound)

		second := model.TotpSecret{
			ID:        uuid.New(),
			Username:  "carol",
			SecretKey: "KRSXG5CTMVRXEZLU",
			Active:    true,
			CreatedAt: time.Now(),
		}
		require.NoError(t, sr.Create(ctx, second))
		active, err = sr.GetActiveByUsername(ctx, "carol")
		require.NoError(t, err)
		require.Equal(t, second.ID, active.ID)
	})

	t.Run("totp_used_code_repository", func(t *testing.T) {
		ur := repo.NewTotpUsedCodeRepository(conn)
		code := model.TotpUsedCode{
			ID:         uuid.New(),
			Username:   "carol",
			Code:       "123456",
			TimeWindow: 59002817,
			UsedAt:     time.Now(),
		}
		require.NoError(t, ur.Create(ctx, code))

		// Same triple again is a replay.
		code.ID = uuid.New()
		require.ErrorIs(t, ur.Create(ctx, code), model.ErrDuplicate)

		// Same code in a different window is fine.
		next := code
		next.ID = uuid.New()
		next.TimeWindow = 59002818
		require.NoError(t, ur.Create(ctx, next))

		deleted, err := ur.DeleteBefore(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.GreaterOrEqual(t, deleted, int64(2))
	})

	t.Run("block_list_repository", func(t *testing.T) {
		br := repo.NewBlockListRepository(conn)
		now := time.Now()
		expiresAt := now.Add(time.Hour)
		require.NoError(t, br.Create(ctx, model.BlockEntry{
			ID:             uuid.New(),
			Username:       "dave",
			IPAddress:      "10.0.0.9",
			Reason:         "too many failed login attempts",
			FailedAttempts: 5,
			BlockedAt:      now,
			ExpiresAt:      &expiresAt,
		}))

		blocked, err := br.Active(ctx, "dave", "", now)
		require.NoError(t, err)
		require.True(t, blocked)

		// IP match blocks a different username too.
		blocked, err = br.Active(ctx, "other", "10.0.0.9", now)
		require.NoError(t, err)
		require.True(t, blocked)

		blocked, err = br.Active(ctx, "other", "10.9.9.9", now)
		require.NoError(t, err)
		require.False(t, blocked)

		// Expired entry no longer blocks and gets swept.
		blocked, err = br.Active(ctx, "dave", "", now.Add(2*time.Hour))
		require.NoError(t, err)
		require.False(t, blocked)

		deleted, err := br.DeleteExpired(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		require.GreaterOrEqual(t, deleted, int64(1))

		// Permanent block: nil expiry never expires.
		require.NoError(t, br.Create(ctx, model.BlockEntry{
			ID:        uuid.New(),
			Username:  "eve",
			Reason:    "manual block",
			BlockedAt: now,
		}))
		blocked, err = br.Active(ctx, "eve", "", now.Add(24*365*time.Hour))
		require.NoError(t, err)
		require.True(t, blocked)
	})

	t.Run("attempt_repository", func(t *testing.T) {
		ar := repo.NewAttemptRepository(conn)
		now := time.Now()

		count, err := ar.RegisterFailure(ctx, "frank", "10.0.0.1", now)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		count, err = ar.RegisterFailure(ctx, "frank", "10.0.0.2", now.Add(time.Second))
		require.NoError(t, err)
		require.Equal(t, 2, count)

		require.NoError(t, ar.Reset(ctx, "frank"))

		count, err = ar.RegisterFailure(ctx, "frank", "10.0.0.1", now.Add(2*time.Second))
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}
