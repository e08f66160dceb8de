package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/lib/jwt"
	"accounts_service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestExecuteFreshLoginReplacesSessions(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	id := s.registerConfirmed(t, "alice", "alice@example.com")

	_, firstRefresh := s.login(t, "alice", strongPass)
	_, secondRefresh := s.login(t, "alice", strongPass)

	require.Equal(t, 1, s.store.RefreshTokenCount(id))

	_, err := s.sessions.Refresh(ctx, "", firstRefresh)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.MsgExpiredToken)

	_, err = s.sessions.Refresh(ctx, "", secondRefresh)
	require.NoError(t, err)
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	id := s.registerConfirmed(t, "alice", "alice@example.com")

	_, refresh := s.login(t, "alice", strongPass)

	pair, err := s.sessions.Refresh(ctx, "", refresh)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEqual(t, refresh, pair.RefreshToken)
	require.Equal(t, 1, s.store.RefreshTokenCount(id))

	_, err = s.sessions.Refresh(ctx, "", refresh)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.MsgExpiredToken)

	// The replacement keeps working.
	_, err = s.sessions.Refresh(ctx, "", pair.RefreshToken)
	require.NoError(t, err)
}

func TestExecuteKeepsValidAccessToken(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	id := s.registerConfirmed(t, "alice", "alice@example.com")

	access, refresh := s.login(t, "alice", strongPass)

	pair, err := s.sessions.Execute(ctx, id, access, refresh)
	require.NoError(t, err)
	require.Equal(t, models.TokenPair{AccessToken: access}, pair)

	// Nothing was rotated, so the refresh token is still good.
	s.clock.Advance(accessTTL + time.Second)

	pair, err = s.sessions.Execute(ctx, id, access, refresh)
	require.NoError(t, err)
	require.NotEqual(t, access, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	_, err = s.sessions.Execute(ctx, id, access, refresh)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.MsgExpiredToken)
}

func TestExecuteErrors(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	alice := s.registerConfirmed(t, "alice", "alice@example.com")
	bob := s.registerConfirmed(t, "bob", "bob@example.com")

	access, refresh := s.login(t, "alice", strongPass)
	bobAccess, _ := s.login(t, "bob", strongPass)

	confirm := jwt.New("confirm-secret", time.Hour, jwt.WithClock(s.clock.Now))
	foreign, err := confirm.Issue(&ConfirmEmailClaims{Email: "alice@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  uuid.UUID
		access  string
		refresh string
		kind    apperr.Kind
		msg     string
	}{
		{"unknown user", uuid.New(), "", "", apperr.KindBadRequest, apperr.MsgNonExistentUser},
		{"access without refresh", alice, access, "", apperr.KindBadRequest, apperr.MsgNoToken},
		{"garbage refresh", alice, "", "garbage", apperr.KindUnauthorized, apperr.MsgInvalidToken},
		{"cross purpose refresh", alice, "", foreign, apperr.KindUnauthorized, apperr.MsgInvalidToken},
		{"garbage access", alice, "garbage", refresh, apperr.KindUnauthorized, apperr.MsgInvalidToken},
		{"access of another user", alice, bobAccess, refresh, apperr.KindUnauthorized, apperr.MsgInvalidToken},
		{"refresh of another user", bob, "", refresh, apperr.KindUnauthorized, apperr.MsgExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.sessions.Execute(ctx, tt.userID, tt.access, tt.refresh)
			requireAppErr(t, err, tt.kind, tt.msg)
		})
	}

	// None of the failures above consumed alice's token.
	_, err = s.sessions.Refresh(ctx, "", refresh)
	require.NoError(t, err)
}

func TestRefreshAfterExpiry(t *testing.T) {
	s := newSuite(t)
	s.registerConfirmed(t, "alice", "alice@example.com")

	_, refresh := s.login(t, "alice", strongPass)

	s.clock.Advance(refreshTTL + time.Second)

	_, err := s.sessions.Refresh(context.Background(), "", refresh)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.MsgExpiredToken)
}

func TestRefreshWithoutToken(t *testing.T) {
	s := newSuite(t)

	_, err := s.sessions.Refresh(context.Background(), "", "")
	requireAppErr(t, err, apperr.KindBadRequest, apperr.MsgNoToken)
}

func TestInvalidateRevokesRefreshTokens(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	id := s.registerConfirmed(t, "alice", "alice@example.com")

	_, refresh := s.login(t, "alice", strongPass)

	require.NoError(t, s.sessions.Invalidate(ctx, id))
	require.Zero(t, s.store.RefreshTokenCount(id))

	_, err := s.sessions.Refresh(ctx, "", refresh)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.MsgExpiredToken)

	// Idempotent.
	require.NoError(t, s.sessions.Invalidate(ctx, id))

	err = s.sessions.Invalidate(ctx, uuid.New())
	requireAppErr(t, err, apperr.KindBadRequest, apperr.MsgNonExistentUser)
}

func TestAccessTokenCarriesRoleSnapshot(t *testing.T) {
	s := newSuite(t)
	id := s.registerConfirmed(t, "root", "root@example.com")

	s.store.SetRole(id, models.RoleAdmin)
	s.store.SetRolePermissions(models.RoleAdmin, []string{models.PermUsersWrite})

	access, _ := s.login(t, "root", strongPass)

	s.store.SetRolePermissions(models.RoleAdmin, []string{models.PermUsersRead, models.PermUsersDelete})
	s.store.SetRole(id, models.RoleUser)

	authz, err := s.sessions.ParseAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, models.Authorization{
		UserID:      id,
		Role:        models.RoleAdmin,
		Permissions: []string{models.PermUsersWrite},
	}, authz)

	// The next issuance picks up the change.
	next, _ := s.login(t, "root", strongPass)

	authz, err = s.sessions.ParseAccessToken(next)
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, authz.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	s := newSuite(t)
	s.registerConfirmed(t, "alice", "alice@example.com")

	access, refresh := s.login(t, "alice", strongPass)

	_, err := s.sessions.ParseAccessToken(refresh)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.MsgUnauthorized)

	s.clock.Advance(accessTTL + time.Second)

	_, err = s.sessions.ParseAccessToken(access)
	requireAppErr(t, err, apperr.KindUnauthorized, apperr.MsgUnauthorized)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	s := newSuite(t)
	id := s.registerConfirmed(t, "alice", "alice@example.com")

	_, refresh := s.login(t, "alice", strongPass)

	const workers = 2

	var (
		wg   sync.WaitGroup
		errs = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.sessions.Refresh(context.Background(), "", refresh)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireAppErr(t, err, apperr.KindUnauthorized, apperr.MsgExpiredToken)
	}

	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, s.store.RefreshTokenCount(id))
}
