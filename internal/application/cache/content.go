package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// ContentCache stores opaque string payloads (profile metadata blobs,
// link-preview content) under content-addressed keys. It is the thinnest
// specialization: key derivation plus the base engine.
type ContentCache struct {
	store *Store[string]
}

func NewContentCache(ctx context.Context, cfg Config, storage ports.StorageAdapter, logger *logrus.Logger) (*ContentCache, error) {
	cfg.KeyPrefix = KeyPrefixContent
	store, err := NewStore[string](ctx, "content", cfg, storage, logger)
	if err != nil {
		return nil, err
	}
	return &ContentCache{store: store}, nil
}

// KeyForURL derives a stable cache key for a URL payload. Hashing keeps keys
// short and sidesteps URL characters that are awkward in key namespaces.
func KeyForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "url:" + hex.EncodeToString(sum[:8])
}

func (c *ContentCache) Get(ctx context.Context, key string) (string, bool) {
	return c.store.Get(ctx, key)
}

func (c *ContentCache) Set(ctx context.Context, key, payload string, online bool) {
	c.store.Set(ctx, key, payload, online)
}

func (c *ContentCache) GetOrFetch(ctx context.Context, key string, online bool, fetch func(context.Context) (string, error)) (string, error) {
	return c.store.GetOrLoad(ctx, key, online, fetch)
}

func (c *ContentCache) Invalidate(ctx context.Context, key string) {
	c.store.Invalidate(ctx, key)
}

func (c *ContentCache) Name() string                  { return c.store.Name() }
func (c *ContentCache) Len() int                      { return c.store.Len() }
func (c *ContentCache) Prune(ctx context.Context) int { return c.store.Prune(ctx) }

// StartSweeper enables the periodic expiry sweep; Close stops it and drains
// pending durable writes.
func (c *ContentCache) StartSweeper(interval time.Duration) { c.store.StartSweeper(interval) }
func (c *ContentCache) Close()                              { c.store.Close() }

var _ ports.ContentCache = (*ContentCache)(nil)
var _ ports.CacheMaintenance = (*ContentCache)(nil)
