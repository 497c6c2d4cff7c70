package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"receiptvault/internal/repository"
	"receiptvault/pkg/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "auth.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	return NewService(repository.NewUserRepository(db.DB, logger), logger)
}

func TestService_SignupAndLogin(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.Signup("dave", "hunter2")
	require.NoError(t, err)
	assert.Len(t, token, tokenBytes*2) // hex encoded

	t.Run("login with correct password returns same token", func(t *testing.T) {
		got, err := svc.Login("dave", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, token, got)
	})

	t.Run("login with wrong password rejected", func(t *testing.T) {
		_, err := svc.Login("dave", "wrong")
		assert.True(t, errors.Is(err, ErrInvalidCredentials))
	})

	t.Run("login with unknown username rejected", func(t *testing.T) {
		_, err := svc.Login("nobody", "hunter2")
		assert.True(t, errors.Is(err, ErrInvalidCredentials))
	})

	t.Run("duplicate signup rejected", func(t *testing.T) {
		_, err := svc.Signup("dave", "different")
		assert.True(t, errors.Is(err, ErrUsernameTaken))
	})
}

func TestService_ResolveToken(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.Signup("erin", "secret")
	require.NoError(t, err)

	t.Run("valid token resolves to owner id", func(t *testing.T) {
		userID, err := svc.ResolveToken(token)
		require.NoError(t, err)
		assert.NotZero(t, userID)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		_, err := svc.ResolveToken("deadbeef")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("empty token rejected", func(t *testing.T) {
		_, err := svc.ResolveToken("")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}
