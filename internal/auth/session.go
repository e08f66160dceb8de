package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/lib/hasher"
	"accounts_service/internal/lib/jwt"
	sl "accounts_service/internal/lib/logger"
	"accounts_service/internal/models"
	"accounts_service/internal/storage"

	"github.com/google/uuid"
)

type UserProvider interface {
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	UserByLogin(ctx context.Context, login string) (models.User, error)
	UserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	RoleAndPermissions(ctx context.Context, id uuid.UUID) (models.Authorization, error)
}

type RefreshTokenStore interface {
	RefreshToken(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, id uuid.UUID) error
	DeleteRefreshTokens(ctx context.Context, userID uuid.UUID) error
	// RotateRefreshToken atomically replaces oldID with next. It returns
	// storage.ErrRefreshTokenNotFound when oldID no longer exists.
	RotateRefreshToken(ctx context.Context, oldID uuid.UUID, next models.RefreshToken) error
	ReplaceRefreshTokens(ctx context.Context, userID uuid.UUID, next models.RefreshToken) error
}

type TokenHasher interface {
	HashToken(token string) ([]byte, error)
	CompareToken(hash []byte, token string) error
}

// SessionIssuer mints, rotates and revokes access/refresh token pairs.
type SessionIssuer struct {
	log     *slog.Logger
	users   UserProvider
	tokens  RefreshTokenStore
	hasher  TokenHasher
	access  *jwt.Codec
	refresh *jwt.Codec
	now     func() time.Time
}

type SessionOption func(*SessionIssuer)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionIssuer) {
		s.now = now
	}
}

func NewSessionIssuer(
	log *slog.Logger,
	users UserProvider,
	tokens RefreshTokenStore,
	hasher TokenHasher,
	access, refresh *jwt.Codec,
	opts ...SessionOption,
) *SessionIssuer {
	s := &SessionIssuer{
		log:     log,
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		access:  access,
		refresh: refresh,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute issues tokens for userID.
//
// With no tokens presented it is a fresh login: every stored refresh token of
// the user is replaced by a new one. With an access token that is still
// valid it returns that same token. Otherwise the refresh token is checked
// against its stored hash and rotated.
func (s *SessionIssuer) Execute(
	ctx context.Context,
	userID uuid.UUID,
	accessToken, refreshToken string,
) (models.TokenPair, error) {
	const op = "auth.SessionIssuer.Execute"

	log := s.log.With(
		slog.String("op", op),
		slog.String("uid", userID.String()),
	)

	if _, err := s.users.UserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")

			return models.TokenPair{}, apperr.BadRequest(apperr.MsgNonExistentUser)
		}

		log.Error("failed to get user", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if accessToken == "" && refreshToken == "" {
		return s.issue(ctx, log, userID, uuid.Nil)
	}

	if refreshToken == "" {
		return models.TokenPair{}, apperr.BadRequest(apperr.MsgNoToken)
	}

	if accessToken != "" {
		var claims AccessClaims

		err := s.access.Verify(accessToken, &claims)
		switch {
		case err == nil:
			if claims.UserID != userID {
				log.Warn("access token belongs to another user")

				return models.TokenPair{}, apperr.Unauthorized(apperr.MsgInvalidToken)
			}

			log.Debug("access token still valid")

			return models.TokenPair{AccessToken: accessToken}, nil
		case !errors.Is(err, jwt.ErrExpired):
			log.Info("invalid access token", sl.Err(err))

			return models.TokenPair{}, tokenError(op, err)
		}
	}

	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		log.Info("invalid refresh token", sl.Err(err))

		return models.TokenPair{}, err
	}

	if claims.UserID != userID {
		log.Warn("refresh token belongs to another user")

		return models.TokenPair{}, apperr.Unauthorized(apperr.MsgExpiredToken)
	}

	stored, err := s.tokens.RefreshToken(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Info("refresh token not stored")

			return models.TokenPair{}, apperr.Unauthorized(apperr.MsgExpiredToken)
		}

		log.Error("failed to get refresh token", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if stored.UserID != userID {
		log.Warn("stored refresh token belongs to another user")

		return models.TokenPair{}, apperr.Unauthorized(apperr.MsgExpiredToken)
	}

	if !s.now().Before(stored.ExpiresAt) {
		log.Info("stored refresh token expired")

		if err := s.tokens.DeleteRefreshToken(ctx, stored.ID); err != nil {
			log.Error("failed to delete expired refresh token", sl.Err(err))
		}

		return models.TokenPair{}, apperr.Unauthorized(apperr.MsgExpiredToken)
	}

	if err := s.hasher.CompareToken(stored.TokenHash, refreshToken); err != nil {
		if !errors.Is(err, hasher.ErrMismatch) {
			log.Error("failed to compare refresh token", sl.Err(err))

			return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}

		log.Warn("refresh token hash mismatch")

		return models.TokenPair{}, apperr.Unauthorized(apperr.MsgExpiredToken)
	}

	return s.issue(ctx, log, userID, stored.ID)
}

func (s *SessionIssuer) Refresh(ctx context.Context, accessToken, refreshToken string) (models.TokenPair, error) {
	const op = "auth.SessionIssuer.Refresh"

	if refreshToken == "" {
		return models.TokenPair{}, apperr.BadRequest(apperr.MsgNoToken)
	}

	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		s.log.Info("invalid refresh token", slog.String("op", op), sl.Err(err))

		return models.TokenPair{}, err
	}

	return s.Execute(ctx, claims.UserID, accessToken, refreshToken)
}

func (s *SessionIssuer) Invalidate(ctx context.Context, userID uuid.UUID) error {
	const op = "auth.SessionIssuer.Invalidate"

	log := s.log.With(
		slog.String("op", op),
		slog.String("uid", userID.String()),
	)

	if _, err := s.users.UserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")

			return apperr.BadRequest(apperr.MsgNonExistentUser)
		}

		log.Error("failed to get user", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.DeleteRefreshTokens(ctx, userID); err != nil {
		log.Error("failed to delete refresh tokens", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh tokens revoked")

	return nil
}

// * ParseAccessToken returns the authorization snapshot carried by the token
func (s *SessionIssuer) ParseAccessToken(token string) (models.Authorization, error) {
	const op = "auth.SessionIssuer.ParseAccessToken"

	var claims AccessClaims
	if err := s.access.Verify(token, &claims); err != nil {
		return models.Authorization{}, apperr.Unauthorized(apperr.MsgUnauthorized).Wrap(fmt.Errorf("%s: %w", op, err))
	}

	authz := claims.AppMetadata.Authorization
	authz.UserID = claims.UserID

	return authz, nil
}

func (s *SessionIssuer) verifyRefresh(token string) (RefreshClaims, error) {
	const op = "auth.SessionIssuer.verifyRefresh"

	var claims RefreshClaims
	if err := s.refresh.Verify(token, &claims); err != nil {
		return RefreshClaims{}, tokenError(op, err)
	}

	if claims.TokenType != refreshTokenType || claims.TokenID == uuid.Nil || claims.UserID == uuid.Nil {
		return RefreshClaims{}, apperr.Unauthorized(apperr.MsgInvalidToken)
	}

	return claims, nil
}

// issue mints a new pair. When previous is set the new refresh token
// replaces that one row; otherwise it replaces all rows of the user.
func (s *SessionIssuer) issue(
	ctx context.Context,
	log *slog.Logger,
	userID, previous uuid.UUID,
) (models.TokenPair, error) {
	const op = "auth.SessionIssuer.issue"

	now := s.now()

	refreshClaims := RefreshClaims{
		TokenID:    uuid.New(),
		UserID:     userID,
		TokenType:  refreshTokenType,
		LastUsedAt: now.UnixMilli(),
	}

	refreshToken, err := s.refresh.Issue(&refreshClaims)
	if err != nil {
		log.Error("failed to create refresh token", sl.Err(err))

		return models.TokenPair{}, tokenNotCreated(op, err)
	}

	hash, err := s.hasher.HashToken(refreshToken)
	if err != nil {
		log.Error("failed to hash refresh token", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := s.accessToken(ctx, userID)
	if err != nil {
		log.Error("failed to create access token", sl.Err(err))

		return models.TokenPair{}, err
	}

	next := models.RefreshToken{
		ID:        refreshClaims.TokenID,
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.refresh.TTL()),
	}

	if previous == uuid.Nil {
		err = s.tokens.ReplaceRefreshTokens(ctx, userID, next)
	} else {
		err = s.tokens.RotateRefreshToken(ctx, previous, next)
	}
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Info("refresh token already rotated")

			return models.TokenPair{}, apperr.Unauthorized(apperr.MsgExpiredToken)
		}

		log.Error("failed to store refresh token", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens issued", slog.Bool("rotated", previous != uuid.Nil))

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *SessionIssuer) accessToken(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "auth.SessionIssuer.accessToken"

	authz, err := s.users.RoleAndPermissions(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	authz.UserID = userID
	if authz.Permissions == nil {
		authz.Permissions = []string{}
	}

	token, err := s.access.Issue(&AccessClaims{
		UserID:      userID,
		AppMetadata: AppMetadata{Authorization: authz},
	})
	if err != nil {
		return "", tokenNotCreated(op, err)
	}

	return token, nil
}
