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
	"accounts_service/internal/lib/password"
	"accounts_service/internal/lib/validation"
	"accounts_service/internal/lib/verification"
	"accounts_service/internal/models"
	"accounts_service/internal/storage"

	"github.com/google/uuid"
)

type UserSaver interface {
	SaveUser(ctx context.Context, username, email string, passHash []byte) (uuid.UUID, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passHash []byte) error
	ConfirmEmail(ctx context.Context, email string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type UserDirectory interface {
	UserProvider
	UserSaver
}

// PasswordResetStore keeps at most one pending reset per user.
type PasswordResetStore interface {
	SavePasswordReset(ctx context.Context, pr models.PasswordReset, ttl time.Duration) error
	PasswordReset(ctx context.Context, userID uuid.UUID) (models.PasswordReset, error)
	// ConsumePasswordReset deletes the pending reset if it still holds token
	// and returns storage.ErrTokenNotFound otherwise.
	ConsumePasswordReset(ctx context.Context, userID uuid.UUID, token string) error
}

type PasswordHasher interface {
	Hash(secret string) ([]byte, error)
	Compare(hash []byte, secret string) error
}

type Mailer interface {
	Send(ctx context.Context, p verification.Purpose, username, email, token string, ttl time.Duration) error
}

type Auth struct {
	log      *slog.Logger
	users    UserDirectory
	resets   PasswordResetStore
	sessions *SessionIssuer
	hasher   PasswordHasher
	mailer   Mailer
	confirm  *jwt.Codec
	reset    *jwt.Codec
}

func New(
	log *slog.Logger,
	users UserDirectory,
	resets PasswordResetStore,
	sessions *SessionIssuer,
	hasher PasswordHasher,
	mailer Mailer,
	confirmEmail, resetPassword *jwt.Codec,
) *Auth {
	return &Auth{
		log:      log,
		users:    users,
		resets:   resets,
		sessions: sessions,
		hasher:   hasher,
		mailer:   mailer,
		confirm:  confirmEmail,
		reset:    resetPassword,
	}
}

// * Register creates an unconfirmed user; a taken but unconfirmed login gets the link again
func (a *Auth) Register(ctx context.Context, username, email, pass, confirmPass string) (uuid.UUID, error) {
	const op = "auth.Register"

	log := a.log.With(
		slog.String("op", op),
	)

	log.Info("registering new user")

	if !validation.ValidUsername(username) {
		return uuid.Nil, apperr.BadRequest(apperr.MsgInvalidUsername)
	}
	if !validation.ValidEmail(email) {
		return uuid.Nil, apperr.BadRequest(apperr.MsgInvalidEmail)
	}

	existing, err := a.users.UserByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil && existing.Confirmed:
		log.Info("user already registered")

		return uuid.Nil, apperr.BadRequest(apperr.MsgUserAlreadyRegistered)
	case err == nil:
		log.Info("user registered but not confirmed")

		if err := a.sendConfirmation(ctx, existing.Username, existing.Email); err != nil {
			return uuid.Nil, err
		}

		return uuid.Nil, apperr.Unauthorized(apperr.MsgAlreadyRegisteredVerify)
	case !errors.Is(err, storage.ErrUserNotFound):
		log.Error("failed to look up user", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := a.passwordHash(pass, confirmPass)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := a.users.SaveUser(ctx, username, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")

			return uuid.Nil, apperr.BadRequest(apperr.MsgUserAlreadyRegistered)
		}
		if errors.Is(err, storage.ErrInvalidUser) {
			log.Info("user rejected by storage", sl.Err(err))

			return uuid.Nil, apperr.BadRequest(apperr.MsgValidation)
		}

		log.Error("failed to save user", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sendConfirmation(ctx, username, email); err != nil {
		return id, err
	}

	log.Info("user registered", slog.String("uid", id.String()))

	return id, nil
}

func (a *Auth) Login(ctx context.Context, login, pass string) (models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(
		slog.String("op", op),
	)

	user, err := a.userByLogin(ctx, log, op, login)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := a.checkPassword(log, op, user, pass, apperr.Unauthorized(apperr.MsgPasswordIncorrect)); err != nil {
		return models.TokenPair{}, err
	}

	if !user.Confirmed {
		log.Info("email not confirmed", slog.String("uid", user.ID.String()))

		if err := a.sendConfirmation(ctx, user.Username, user.Email); err != nil {
			return models.TokenPair{}, err
		}

		return models.TokenPair{}, apperr.Unauthorized(apperr.MsgConfirmEmail)
	}

	pair, err := a.sessions.Execute(ctx, user.ID, "", "")
	if err != nil {
		return models.TokenPair{}, err
	}

	log.Info("user logged in", slog.String("uid", user.ID.String()))

	return pair, nil
}

func (a *Auth) RequestEmailConfirmation(ctx context.Context, login string) error {
	const op = "auth.RequestEmailConfirmation"

	log := a.log.With(
		slog.String("op", op),
	)

	user, err := a.userByLogin(ctx, log, op, login)
	if err != nil {
		return err
	}

	if user.Confirmed {
		return apperr.BadRequest(apperr.MsgEmailAlreadyConfirmed)
	}

	return a.sendConfirmation(ctx, user.Username, user.Email)
}

func (a *Auth) ConfirmEmail(ctx context.Context, token string) error {
	const op = "auth.ConfirmEmail"

	log := a.log.With(
		slog.String("op", op),
	)

	var claims ConfirmEmailClaims
	if err := a.confirm.Verify(token, &claims); err != nil {
		log.Info("invalid confirmation token", sl.Err(err))

		return tokenError(op, err)
	}

	if claims.Email == "" {
		return apperr.BadRequest(apperr.MsgInvalidToken)
	}

	user, err := a.userByLogin(ctx, log, op, claims.Email)
	if err != nil {
		return err
	}

	if user.Confirmed {
		return apperr.BadRequest(apperr.MsgEmailAlreadyConfirmed)
	}

	if err := a.users.ConfirmEmail(ctx, user.Email); err != nil {
		log.Error("failed to confirm email", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email confirmed", slog.String("uid", user.ID.String()))

	return nil
}

// * RequestPasswordReset supersedes any earlier reset token of the user
func (a *Auth) RequestPasswordReset(ctx context.Context, login string) error {
	const op = "auth.RequestPasswordReset"

	log := a.log.With(
		slog.String("op", op),
	)

	user, err := a.userByLogin(ctx, log, op, login)
	if err != nil {
		return err
	}

	claims := ResetPasswordClaims{UserID: user.ID}
	claims.ID = uuid.NewString()

	token, err := a.reset.Issue(&claims)
	if err != nil {
		log.Error("failed to create reset token", sl.Err(err))

		return tokenNotCreated(op, err)
	}

	err = a.resets.SavePasswordReset(ctx, models.PasswordReset{
		UserID: user.ID,
		Login:  login,
		Token:  token,
	}, a.reset.TTL())
	if err != nil {
		log.Error("failed to save reset token", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.mailer.Send(ctx, verification.ResetPassword, user.Username, user.Email, token, a.reset.TTL()); err != nil {
		return err
	}

	log.Info("password reset requested", slog.String("uid", user.ID.String()))

	return nil
}

// * ResetPassword accepts only the latest reset token of the user
func (a *Auth) ResetPassword(ctx context.Context, token, pass, confirmPass string) error {
	const op = "auth.ResetPassword"

	log := a.log.With(
		slog.String("op", op),
	)

	var claims ResetPasswordClaims
	if err := a.reset.Verify(token, &claims); err != nil {
		log.Info("invalid reset token", sl.Err(err))

		return tokenError(op, err)
	}

	if claims.UserID == uuid.Nil {
		return apperr.Unauthorized(apperr.MsgInvalidToken)
	}

	log = log.With(slog.String("uid", claims.UserID.String()))

	pending, err := a.resets.PasswordReset(ctx, claims.UserID)
	if err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
		log.Error("failed to get reset token", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}
	if err != nil || pending.Token != token {
		log.Info("stale reset token")

		return apperr.UnprocessableEntity(apperr.MsgTokenAlreadyUsed)
	}

	passHash, err := a.passwordHash(pass, confirmPass)
	if err != nil {
		return err
	}

	if err := a.resets.ConsumePasswordReset(ctx, claims.UserID, token); err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Info("reset token consumed concurrently")

			return apperr.UnprocessableEntity(apperr.MsgTokenAlreadyUsed)
		}

		log.Error("failed to consume reset token", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.users.UpdatePassword(ctx, claims.UserID, passHash); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return apperr.BadRequest(apperr.MsgNonExistentUser)
		}

		log.Error("failed to update password", sl.Err(err))

		// put the token back so the emailed link keeps working; its own
		// exp claim still bounds its lifetime
		if rerr := a.resets.SavePasswordReset(ctx, pending, a.reset.TTL()); rerr != nil {
			log.Error("failed to restore reset token", sl.Err(rerr))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.Invalidate(ctx, claims.UserID); err != nil {
		return err
	}

	log.Info("password reset")

	return nil
}

func (a *Auth) ChangePassword(ctx context.Context, userID uuid.UUID, pass, newPass, confirmNewPass string) error {
	const op = "auth.ChangePassword"

	log := a.log.With(
		slog.String("op", op),
		slog.String("uid", userID.String()),
	)

	user, err := a.userByID(ctx, log, op, userID)
	if err != nil {
		return err
	}

	if err := a.checkPassword(log, op, user, pass, apperr.BadRequest(apperr.MsgPasswordIncorrect)); err != nil {
		return err
	}

	passHash, err := a.passwordHash(newPass, confirmNewPass)
	if err != nil {
		return err
	}

	if err := a.users.UpdatePassword(ctx, user.ID, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password changed")

	return nil
}

func (a *Auth) Logout(ctx context.Context, userID uuid.UUID) error {
	return a.sessions.Invalidate(ctx, userID)
}

func (a *Auth) Refresh(ctx context.Context, accessToken, refreshToken string) (models.TokenPair, error) {
	return a.sessions.Refresh(ctx, accessToken, refreshToken)
}

func (a *Auth) DeleteAccount(ctx context.Context, userID uuid.UUID, pass string) error {
	const op = "auth.DeleteAccount"

	log := a.log.With(
		slog.String("op", op),
		slog.String("uid", userID.String()),
	)

	user, err := a.userByID(ctx, log, op, userID)
	if err != nil {
		return err
	}

	if err := a.checkPassword(log, op, user, pass, apperr.BadRequest(apperr.MsgPasswordIncorrect)); err != nil {
		return err
	}

	return a.DeleteUser(ctx, userID)
}

func (a *Auth) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "auth.DeleteUser"

	log := a.log.With(
		slog.String("op", op),
		slog.String("uid", userID.String()),
	)

	if err := a.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")

			return apperr.BadRequest(apperr.MsgNonExistentUser)
		}

		log.Error("failed to delete user", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user deleted")

	return nil
}

func (a *Auth) sendConfirmation(ctx context.Context, username, email string) error {
	const op = "auth.sendConfirmation"

	token, err := a.confirm.Issue(&ConfirmEmailClaims{Email: email})
	if err != nil {
		a.log.Error("failed to create confirmation token", slog.String("op", op), sl.Err(err))

		return tokenNotCreated(op, err)
	}

	return a.mailer.Send(ctx, verification.ConfirmEmail, username, email, token, a.confirm.TTL())
}

func (a *Auth) passwordHash(pass, confirmPass string) ([]byte, error) {
	const op = "auth.passwordHash"

	if violations := password.Validate(pass); len(violations) > 0 {
		return nil, apperr.BadRequest(apperr.MsgWeakPassword, violations...)
	}

	if pass != confirmPass {
		return nil, apperr.BadRequest(apperr.MsgPasswordsDoNotMatch)
	}

	hash, err := a.hasher.Hash(pass)
	if err != nil {
		a.log.Error("failed to hash password", slog.String("op", op), sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return hash, nil
}

// checkPassword returns onMismatch when pass does not match the stored hash.
func (a *Auth) checkPassword(log *slog.Logger, op string, user models.User, pass string, onMismatch *apperr.Error) error {
	err := a.hasher.Compare(user.PassHash, pass)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hasher.ErrMismatch):
		log.Info("invalid credentials")

		return onMismatch
	default:
		log.Error("failed to compare password", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}
}

func (a *Auth) userByLogin(ctx context.Context, log *slog.Logger, op, login string) (models.User, error) {
	user, err := a.users.UserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")

			return models.User{}, apperr.BadRequest(apperr.MsgNonExistentUser)
		}

		log.Error("failed to get user", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (a *Auth) userByID(ctx context.Context, log *slog.Logger, op string, id uuid.UUID) (models.User, error) {
	user, err := a.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")

			return models.User{}, apperr.BadRequest(apperr.MsgNonExistentUser)
		}

		log.Error("failed to get user", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
