package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accounts_service/internal/config"
	"accounts_service/internal/models"
	"accounts_service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation          = "23505"
	checkViolation           = "23514"
	stringDataRightTruncated = "22001"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.Postgres) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// * SaveUser also grants the default role
func (r *PostgresRepo) SaveUser(ctx context.Context, username, email string, passHash []byte) (uuid.UUID, error) {
	const op = "storage.postgres.SaveUser"

	id := uuid.New()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var taken bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM users
				WHERE LOWER(username) IN (LOWER($1), LOWER($2))
				   OR LOWER(email) IN (LOWER($1), LOWER($2))
			)
		`, username, email).Scan(&taken)
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrUserExists
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO users (id, username, email, password_hash)
			VALUES ($1, $2, $3, $4)
		`, id, username, email, string(passHash))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO users_roles (user_id, role_id)
			SELECT $1, id FROM roles WHERE role = $2
		`, id, models.RoleUser)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return uuid.Nil, storage.ErrUserExists
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return uuid.Nil, storage.ErrUserExists
			case checkViolation, stringDataRightTruncated:
				return uuid.Nil, fmt.Errorf("%s: %w: %s", op, storage.ErrInvalidUser, pgErr.Message)
			}
		}

		return uuid.Nil, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

const selectUser = `SELECT id, username, email, password_hash, confirmed FROM users`

func (r *PostgresRepo) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "storage.postgres.UserByID"

	return r.user(ctx, op, selectUser+` WHERE id = $1`, id)
}

// * UserByLogin matches login against username or email, ignoring case.
// An email match wins over a username match.
func (r *PostgresRepo) UserByLogin(ctx context.Context, login string) (models.User, error) {
	const op = "storage.postgres.UserByLogin"

	return r.user(ctx, op, selectUser+`
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		ORDER BY (LOWER(email) = LOWER($1)) DESC
		LIMIT 1`, login)
}

// * UserByUsernameOrEmail finds a user holding either value as username or
// as email
func (r *PostgresRepo) UserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	const op = "storage.postgres.UserByUsernameOrEmail"

	return r.user(ctx, op, selectUser+`
		WHERE LOWER(username) IN (LOWER($1), LOWER($2))
		   OR LOWER(email) IN (LOWER($1), LOWER($2))
		ORDER BY (LOWER(username) = LOWER($1)) DESC
		LIMIT 1`, username, email)
}

func (r *PostgresRepo) user(ctx context.Context, op, query string, args ...any) (models.User, error) {
	var (
		u    models.User
		hash string
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.Confirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	u.PassHash = []byte(hash)

	return u, nil
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passHash []byte) error {
	const op = "storage.postgres.UpdatePassword"

	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, id, string(passHash))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) ConfirmEmail(ctx context.Context, email string) error {
	const op = "storage.postgres.ConfirmEmail"

	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET confirmed = TRUE, updated_at = NOW()
		WHERE LOWER(email) = LOWER($1)
	`, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// * DeleteUser relies on ON DELETE CASCADE for tokens, grants and resets
func (r *PostgresRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteUser"

	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) RoleAndPermissions(ctx context.Context, id uuid.UUID) (models.Authorization, error) {
	const op = "storage.postgres.RoleAndPermissions"

	rows, err := r.pool.Query(ctx, `
		SELECT roles.role, permissions.permission
		FROM users_roles
		JOIN roles ON roles.id = users_roles.role_id
		LEFT JOIN permissions_roles ON permissions_roles.role_id = roles.id
		LEFT JOIN permissions ON permissions.id = permissions_roles.permission_id
		WHERE users_roles.user_id = $1
		ORDER BY roles.id, permissions.id
	`, id)
	if err != nil {
		return models.Authorization{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	authz := models.Authorization{UserID: id, Permissions: []string{}}

	for rows.Next() {
		var (
			role string
			perm *string
		)
		if err := rows.Scan(&role, &perm); err != nil {
			return models.Authorization{}, fmt.Errorf("%s: %w", op, err)
		}

		if authz.Role == "" {
			authz.Role = role
		}
		if role == authz.Role && perm != nil {
			authz.Permissions = append(authz.Permissions, *perm)
		}
	}
	if err := rows.Err(); err != nil {
		return models.Authorization{}, fmt.Errorf("%s: %w", op, err)
	}

	return authz, nil
}

func (r *PostgresRepo) RefreshToken(ctx context.Context, id uuid.UUID) (models.RefreshToken, error) {
	const op = "storage.postgres.RefreshToken"

	var (
		rt   models.RefreshToken
		hash string
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, refresh_token_hash, expires_at
		FROM refresh_tokens
		WHERE id = $1
	`, id).Scan(&rt.ID, &rt.UserID, &hash, &rt.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
		}

		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	rt.TokenHash = []byte(hash)

	return rt, nil
}

func (r *PostgresRepo) DeleteRefreshToken(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteRefreshToken"

	if _, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) DeleteRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.postgres.DeleteRefreshTokens"

	if _, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RotateRefreshToken deletes oldID and inserts next in one transaction.
// When oldID is already gone, for example because a concurrent rotation won,
// nothing is inserted and ErrRefreshTokenNotFound is returned.
func (r *PostgresRepo) RotateRefreshToken(ctx context.Context, oldID uuid.UUID, next models.RefreshToken) error {
	const op = "storage.postgres.RotateRefreshToken"

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, oldID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return storage.ErrRefreshTokenNotFound
		}

		return insertRefreshToken(ctx, tx, next)
	})
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) ReplaceRefreshTokens(ctx context.Context, userID uuid.UUID, next models.RefreshToken) error {
	const op = "storage.postgres.ReplaceRefreshTokens"

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
			return err
		}

		return insertRefreshToken(ctx, tx, next)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func insertRefreshToken(ctx context.Context, tx pgx.Tx, rt models.RefreshToken) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, refresh_token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`, rt.ID, rt.UserID, string(rt.TokenHash), rt.ExpiresAt)

	return err
}

func (r *PostgresRepo) SavePasswordReset(ctx context.Context, pr models.PasswordReset, ttl time.Duration) error {
	const op = "storage.postgres.SavePasswordReset"

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, pr.UserID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO password_resets (user_id, login, token, expires_at)
			VALUES ($1, $2, $3, NOW() + make_interval(secs => $4))
		`, pr.UserID, pr.Login, pr.Token, ttl.Seconds())

		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) PasswordReset(ctx context.Context, userID uuid.UUID) (models.PasswordReset, error) {
	const op = "storage.postgres.PasswordReset"

	var pr models.PasswordReset

	err := r.pool.QueryRow(ctx, `
		SELECT user_id, login, token
		FROM password_resets
		WHERE user_id = $1 AND expires_at > NOW()
	`, userID).Scan(&pr.UserID, &pr.Login, &pr.Token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PasswordReset{}, storage.ErrTokenNotFound
		}

		return models.PasswordReset{}, fmt.Errorf("%s: %w", op, err)
	}

	return pr, nil
}

// ConsumePasswordReset deletes the pending reset only if it still holds
// token, so exactly one consumer of a given token succeeds.
func (r *PostgresRepo) ConsumePasswordReset(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "storage.postgres.ConsumePasswordReset"

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM password_resets
		WHERE user_id = $1 AND token = $2 AND expires_at > NOW()
	`, userID, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTokenNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}
