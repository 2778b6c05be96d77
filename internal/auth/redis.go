package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/muurk/socketd/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// redisGetter is the part of *redis.Client the store needs.
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore resolves tokens stored under "<prefix><token>".
//
// The value is either a bare user id or a JSON object:
//
//	{"user_id": "42", "expires_at": "2025-01-02T15:04:05Z"}
//
// Keys that Redis expires on its own simply stop resolving.
type RedisStore struct {
	client redisGetter
	prefix string
	closer func() error
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisStore) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client, prefix: cfg.KeyPrefix, closer: client.Close}, nil
}

type redisIdentity struct {
	UserID    jsoniter.RawMessage `json:"user_id"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Lookup fetches the identity stored for token.
func (s *RedisStore) Lookup(ctx context.Context, token string) (*Identity, error) {
	val, err := s.client.Get(ctx, s.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	val = strings.TrimSpace(val)
	if !strings.HasPrefix(val, "{") {
		return &Identity{UserID: val}, nil
	}

	var stored redisIdentity
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return nil, fmt.Errorf("malformed identity under %s%s: %w", s.prefix, redactToken(token), err)
	}

	return &Identity{UserID: NormalizeUserID(stored.UserID), ExpiresAt: stored.ExpiresAt}, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// NormalizeUserID renders a JSON user id (string or number) as plain text.
func NormalizeUserID(raw []byte) string {
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// redactToken keeps enough of a token to correlate log lines.
func redactToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
