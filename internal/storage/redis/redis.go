package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accounts_service/internal/models"
	"accounts_service/internal/storage"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepo keeps pending password resets with a native expiry. Each user
// has at most one pending reset, stored as a hash under pwreset:<user id>.
type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

func resetKey(userID uuid.UUID) string {
	return "pwreset:" + userID.String()
}

func (r *RedisRepo) SavePasswordReset(ctx context.Context, pr models.PasswordReset, ttl time.Duration) error {
	const op = "storage.redis.SavePasswordReset"

	key := resetKey(pr.UserID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "login", pr.Login, "token", pr.Token)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) PasswordReset(ctx context.Context, userID uuid.UUID) (models.PasswordReset, error) {
	const op = "storage.redis.PasswordReset"

	vals, err := r.client.HGetAll(ctx, resetKey(userID)).Result()
	if err != nil {
		return models.PasswordReset{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(vals) == 0 {
		return models.PasswordReset{}, storage.ErrTokenNotFound
	}

	return models.PasswordReset{
		UserID: userID,
		Login:  vals["login"],
		Token:  vals["token"],
	}, nil
}

// consumeScript deletes the key only while it still holds the given token.
var consumeScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "token") == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisRepo) ConsumePasswordReset(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "storage.redis.ConsumePasswordReset"

	n, err := consumeScript.Run(ctx, r.client, []string{resetKey(userID)}, token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return storage.ErrTokenNotFound
	}

	return nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}
