package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	xerrors "fieldserve-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Manager stores live sessions in redis keyed by user and jti.
type Manager struct {
	client *redis.Client
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

func (m *Manager) sessionKey(userID int64, jti string) string {
	return fmt.Sprintf("sess:%d:%s", userID, jti)
}

// Create stores a new session with a TTL matching the token lifetime.
func (m *Manager) Create(ctx context.Context, data *Data) error {
	ttl := time.Until(data.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.client.Set(ctx, m.sessionKey(data.UserID, data.JTI), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

// Get fetches a live session. A missing key means the token was revoked
// or expired.
func (m *Manager) Get(ctx context.Context, userID int64, jti string) (*Data, error) {
	raw, err := m.client.Get(ctx, m.sessionKey(userID, jti)).Bytes()
	if err == redis.Nil {
		return nil, xerrors.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &data, nil
}

// Delete revokes a single session.
func (m *Manager) Delete(ctx context.Context, userID int64, jti string) error {
	return m.client.Del(ctx, m.sessionKey(userID, jti)).Err()
}

// DeleteAll revokes every session belonging to a user.
func (m *Manager) DeleteAll(ctx context.Context, userID int64) error {
	pattern := fmt.Sprintf("sess:%d:*", userID)
	iter := m.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := m.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// RateLimiter is a fixed-window counter on redis, used to slow down
// password guessing on the login endpoint.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments the counter for key and reports whether the caller
// is still under limit for the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	redisKey := "ratelimit:" + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= limit, nil
}
