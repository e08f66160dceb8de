package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"accounts_service/internal/models"
	"accounts_service/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	id, err := s.SaveUser(ctx, "Alice", "alice@example.com", []byte("h"))
	require.NoError(t, err)

	_, err = s.SaveUser(ctx, "ALICE", "x@example.com", []byte("h"))
	require.ErrorIs(t, err, storage.ErrUserExists)

	u, err := s.UserByLogin(ctx, "Alice@Example.com")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)

	require.NoError(t, s.UpdatePassword(ctx, id, []byte("h2")))
	require.Equal(t, 1, s.PasswordUpdates())
	require.ErrorIs(t, s.UpdatePassword(ctx, uuid.New(), []byte("h2")), storage.ErrUserNotFound)

	authz, err := s.RoleAndPermissions(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, authz.Role)

	require.NoError(t, s.DeleteUser(ctx, id))
	require.ErrorIs(t, s.DeleteUser(ctx, id), storage.ErrUserNotFound)
}

func TestUsernameEmailCollisions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	victim, err := s.SaveUser(ctx, "victim", "victim@example.com", []byte("victim"))
	require.NoError(t, err)

	_, err = s.SaveUser(ctx, "Victim@Example.com", "mallory@example.com", []byte("mallory"))
	require.ErrorIs(t, err, storage.ErrUserExists)

	_, err = s.SaveUser(ctx, "mallory", "VICTIM", []byte("mallory"))
	require.ErrorIs(t, err, storage.ErrUserExists)

	u, err := s.UserByUsernameOrEmail(ctx, "victim@example.com", "mallory@example.com")
	require.NoError(t, err)
	require.Equal(t, victim, u.ID)

	mallory, err := s.SaveUser(ctx, "mallory", "mallory@example.com", []byte("mallory"))
	require.NoError(t, err)

	require.NoError(t, s.UpdatePassword(ctx, mallory, []byte("changed")))

	u, err = s.UserByLogin(ctx, "victim@example.com")
	require.NoError(t, err)
	require.Equal(t, victim, u.ID)
	require.Equal(t, []byte("victim"), u.PassHash)
}

func TestRotateRefreshTokenSingleWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	userID := uuid.New()

	old := models.RefreshToken{ID: uuid.New(), UserID: userID}
	require.NoError(t, s.ReplaceRefreshTokens(ctx, userID, old))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.RotateRefreshToken(ctx, old.ID, models.RefreshToken{ID: uuid.New(), UserID: userID}) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
	require.Equal(t, 1, s.RefreshTokenCount(userID))
}

func TestPasswordResetExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))
	userID := uuid.New()

	require.NoError(t, s.SavePasswordReset(ctx, models.PasswordReset{UserID: userID, Login: "a", Token: "t"}, time.Minute))

	_, err := s.PasswordReset(ctx, userID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	_, err = s.PasswordReset(ctx, userID)
	require.ErrorIs(t, err, storage.ErrTokenNotFound)
	require.ErrorIs(t, s.ConsumePasswordReset(ctx, userID, "t"), storage.ErrTokenNotFound)
}
