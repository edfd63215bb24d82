package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"precinctwatch/internal/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "precinctwatch:"

// Payload kinds cached under the dashboard namespace.
const (
	KindDashboard = "dashboard"
	KindExec      = "exec"
)

type CacheService interface {
	// GetPayload decodes a cached payload into dst. A miss returns false and no error.
	GetPayload(ctx context.Context, kind string, dst any) (bool, error)
	SetPayload(ctx context.Context, kind string, payload any, ttl time.Duration) error
	// InvalidatePayloads drops every cached dashboard payload.
	InvalidatePayloads(ctx context.Context) error

	// Session management
	SetSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// IsRateLimited counts a hit against key and reports whether limit is exceeded in window.
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
	log    logger.Logger
}

// NewRedisClient accepts host:port or a redis:// URL.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		if password != "" {
			opts.Password = password
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}

func NewRedisCacheService(client *redis.Client, log logger.Logger) CacheService {
	return &redisCacheService{client: client, log: log}
}

func payloadKey(kind string) string {
	return keyPrefix + "payload:" + kind
}

func sessionKey(sessionID string) string {
	return keyPrefix + "session:" + sessionID
}

func (r *redisCacheService) GetPayload(ctx context.Context, kind string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, payloadKey(kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A payload from an older build. Drop it and treat as a miss.
		r.log.Warn("discarding undecodable cached payload", map[string]interface{}{"kind": kind, "error": err.Error()})
		_ = r.client.Del(ctx, payloadKey(kind)).Err()
		return false, nil
	}
	return true, nil
}

func (r *redisCacheService) SetPayload(ctx context.Context, kind string, payload any, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return r.client.Set(ctx, payloadKey(kind), data, ttl).Err()
}

func (r *redisCacheService) InvalidatePayloads(ctx context.Context) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, keyPrefix+"payload:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCacheService) SetSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	return r.client.Set(ctx, sessionKey(sessionID), userID, ttl).Err()
}

// GetSession returns "" when the session does not exist or has expired.
func (r *redisCacheService) GetSession(ctx context.Context, sessionID string) (string, error) {
	val, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) DeleteSession(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKey(sessionID)).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := keyPrefix + "ratelimit:" + key
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, cacheKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count > int64(limit), nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
