package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// ListCache stores named member-id lists (user lists, mute lists, block
// lists) keyed by (listType, owner). Mutations are read-modify-write over
// the base engine; last write wins, with the cache's own lock preventing
// lost updates between concurrent callers in this process.
type ListCache struct {
	mu    sync.Mutex
	store *Store[[]string]
}

func NewListCache(ctx context.Context, cfg Config, storage ports.StorageAdapter, logger *logrus.Logger) (*ListCache, error) {
	cfg.KeyPrefix = KeyPrefixList
	store, err := NewStore[[]string](ctx, "list", cfg, storage, logger)
	if err != nil {
		return nil, err
	}
	return &ListCache{store: store}, nil
}

func listKey(listType, owner string) string {
	return listType + ":" + owner
}

// Members returns the cached list. ok distinguishes a cached empty list from
// a list we have never fetched.
func (c *ListCache) Members(ctx context.Context, listType, owner string) ([]string, bool) {
	return c.store.Get(ctx, listKey(listType, owner))
}

// Replace overwrites the list wholesale, de-duplicating while preserving the
// caller's order.
func (c *ListCache) Replace(ctx context.Context, listType, owner string, members []string, online bool) {
	seen := make(map[string]bool, len(members))
	deduped := make([]string, 0, len(members))
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		deduped = append(deduped, m)
	}
	c.mu.Lock()
	c.store.Set(ctx, listKey(listType, owner), deduped, online)
	c.mu.Unlock()
}

// Add appends memberID to the list if absent. The rewrite refreshes the
// entry's expiry either way.
func (c *ListCache) Add(ctx context.Context, listType, owner, memberID string, online bool) {
	if memberID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := listKey(listType, owner)
	members, _ := c.store.Get(ctx, key)
	if !containsString(members, memberID) {
		members = append(members, memberID)
	}
	c.store.Set(ctx, key, members, online)
}

// Remove drops memberID from the list. An uncached list stays uncached:
// there is nothing trustworthy to rewrite until the caller populates it.
func (c *ListCache) Remove(ctx context.Context, listType, owner, memberID string, online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := listKey(listType, owner)
	members, ok := c.store.Get(ctx, key)
	if !ok {
		return
	}
	kept := make([]string, 0, len(members))
	for _, m := range members {
		if m != memberID {
			kept = append(kept, m)
		}
	}
	c.store.Set(ctx, key, kept, online)
}

func (c *ListCache) Invalidate(ctx context.Context, listType, owner string) {
	c.store.Invalidate(ctx, listKey(listType, owner))
}

// InvalidateType discards every cached list of one type, leaving other list
// types untouched.
func (c *ListCache) InvalidateType(ctx context.Context, listType string) {
	c.store.InvalidatePrefix(ctx, listType+":")
}

func (c *ListCache) Name() string                  { return c.store.Name() }
func (c *ListCache) Len() int                      { return c.store.Len() }
func (c *ListCache) Prune(ctx context.Context) int { return c.store.Prune(ctx) }

func (c *ListCache) StartSweeper(interval time.Duration) { c.store.StartSweeper(interval) }
func (c *ListCache) Close()                              { c.store.Close() }

var _ ports.ListCache = (*ListCache)(nil)
var _ ports.CacheMaintenance = (*ListCache)(nil)
