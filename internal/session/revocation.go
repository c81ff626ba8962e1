package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokedKeyPrefix namespaces revoked token ids in Redis.
const revokedKeyPrefix = "identity:session:revoked:"

// RedisRevocations keeps revoked token ids in Redis until the token would
// have expired anyway, so every instance sees a logout.
type RedisRevocations struct {
	client *redis.Client
}

// NewRedisRevocations creates a revocation list on client.
func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client}
}

// Revoke marks jti as revoked for ttl.
func (r *RedisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti has been revoked. A missing key means the
// token was never revoked or its entry has expired.
func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := r.client.Get(ctx, revokedKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
