package redis

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenPrefix = "refresh_token:"
	userPrefix  = "user_sessions:"
)

// RedisTokenRepo keeps one key per refresh token holding the owner id, plus a
// per-user set used by DeleteByUser. Expiry is left to redis key TTLs.
type RedisTokenRepo struct {
	client *redis.Client
}

func NewRedisTokenRepo(client *redis.Client) *RedisTokenRepo {
	return &RedisTokenRepo{
		client: client,
	}
}

func (r *RedisTokenRepo) Store(ctx context.Context, rt model.RefreshToken) error {
	ttl := ttlUntil(rt.ExpiresAt)
	userKey := userPrefix + rt.UserID.String()

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, tokenPrefix+rt.Token, rt.UserID.String(), ttl)
		p.SAdd(ctx, userKey, rt.Token)
		return nil
	})
	if err != nil {
		return customErrors.WrapInternal(err, "StoreRefresh")
	}
	return nil
}

func (r *RedisTokenRepo) Exists(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, tokenPrefix+token).Result()
	if err != nil {
		return false, customErrors.WrapInternal(err, "ExistsRefresh")
	}
	return n > 0, nil
}

func (r *RedisTokenRepo) Delete(ctx context.Context, token string) error {
	owner, err := r.client.GetDel(ctx, tokenPrefix+token).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return customErrors.WrapInternal(err, "DeleteRefresh")
	}
	if err := r.client.SRem(ctx, userPrefix+owner, token).Err(); err != nil {
		return customErrors.WrapInternal(err, "DeleteRefresh")
	}
	return nil
}

func (r *RedisTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	userKey := userPrefix + userID.String()
	tokens, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return customErrors.WrapInternal(err, "DeleteRefreshByUser")
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, tokenPrefix+t)
	}
	keys = append(keys, userKey)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return customErrors.WrapInternal(err, "DeleteRefreshByUser")
	}
	return nil
}

// DeleteExpired has nothing to remove: expired keys are evicted by redis.
func (r *RedisTokenRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// ttlUntil returns 0 (no expiry) for a zero time.
func ttlUntil(exp time.Time) time.Duration {
	if exp.IsZero() {
		return 0
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		// expire almost immediately instead of persisting forever
		return time.Millisecond
	}
	return ttl
}
