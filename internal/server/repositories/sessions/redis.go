package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accountd/accountd/internal/common"
	"github.com/accountd/accountd/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	userSetPrefix    = "user_sessions:"
)

// RedisRepository implements Repository on top of Redis. Expiry is delegated
// to key TTLs; a per-user set indexes tokens so DeleteForUser can revoke all
// of a user's sessions.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository constructs a repository bound to the given client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func sessionKey(token string) string { return sessionKeyPrefix + token }

func userSetKey(username string) string { return userSetPrefix + username }

// Create stores token -> username with a TTL of validity and records the
// token in the user's session set.
func (r *RedisRepository) Create(ctx context.Context, token, username string, validity time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(token), username, validity)
	pipe.SAdd(ctx, userSetKey(username), token)
	pipe.Expire(ctx, userSetKey(username), validity)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Find returns the session record for token. Redis drops expired keys on its
// own, so any hit is unexpired; Expires is reconstructed from the key TTL.
func (r *RedisRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	username, err := r.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	ttl, err := r.client.TTL(ctx, sessionKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	return &models.Session{
		Token:    token,
		Username: username,
		Expires:  time.Now().Add(ttl),
	}, nil
}

// Delete removes a session by its token string.
func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	username, err := r.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis error: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	pipe.SRem(ctx, userSetKey(username), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// DeleteForUser removes every session recorded in the user's session set.
func (r *RedisRepository) DeleteForUser(ctx context.Context, username string) error {
	tokens, err := r.client.SMembers(ctx, userSetKey(username)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	pipe := r.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionKey(token))
	}
	pipe.Del(ctx, userSetKey(username))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts expired session keys itself.
func (r *RedisRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
