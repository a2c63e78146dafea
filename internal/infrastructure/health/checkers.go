package health

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// storageHealthChecker probes the durable tier with a write/read/delete
// round-trip under a dedicated key.
type storageHealthChecker struct{ adapter ports.StorageAdapter }

func (s *storageHealthChecker) Name() string { return "storage" }

func (s *storageHealthChecker) Check(ctx context.Context) error {
	key := "health:probe"
	payload := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := s.adapter.Write(ctx, key, payload); err != nil {
		return err
	}
	if _, _, err := s.adapter.Read(ctx, key); err != nil {
		return err
	}
	return s.adapter.Delete(ctx, key)
}

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client *redis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewStorageHealthChecker creates a health checker for any storage adapter.
func NewStorageHealthChecker(adapter ports.StorageAdapter) ports.HealthChecker {
	return &storageHealthChecker{adapter: adapter}
}

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}
