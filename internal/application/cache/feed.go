package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-social/meridian/internal/core/domain/event"
	"github.com/meridian-social/meridian/internal/core/ports"
)

// feedItem is what a feed remembers about each event: enough to keep the
// sequence ordered without re-resolving the full event.
type feedItem struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

// feedState is the cached value for one feed key: the ordered id sequence
// plus the feed's pagination cursor.
type feedState struct {
	Items  []feedItem       `json:"items"`
	Cursor ports.FeedCursor `json:"cursor"`
}

// FeedCache stores the current known page of each named feed (hashtag,
// public timeline) as an ordered id sequence, resolving full events through
// the event cache on read.
type FeedCache struct {
	// guards the read-modify-write paths so concurrent page fetches for the
	// same feed cannot lose updates
	mu     sync.Mutex
	store  *Store[feedState]
	events *EventCache
}

func NewFeedCache(ctx context.Context, cfg Config, storage ports.StorageAdapter, events *EventCache, logger *logrus.Logger) (*FeedCache, error) {
	cfg.KeyPrefix = KeyPrefixFeed
	store, err := NewStore[feedState](ctx, "feed", cfg, storage, logger)
	if err != nil {
		return nil, err
	}
	return &FeedCache{store: store, events: events}, nil
}

// AppendPage merges a freshly fetched page into the feed: de-duplicates by
// id, re-sorts newest first (ties by id ascending) and advances the cursor
// to the oldest known item. The events themselves go into the event cache.
// Overlapping fetches resolve last-write-wins under the cache's lock.
func (c *FeedCache) AppendPage(ctx context.Context, feedKey string, events []event.Event, online bool) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	state, _ := c.store.Get(ctx, feedKey)
	seen := make(map[string]bool, len(state.Items)+len(events))
	merged := make([]feedItem, 0, len(state.Items)+len(events))
	for _, it := range state.Items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		merged = append(merged, it)
	}
	for _, ev := range events {
		if ev.ID == "" || seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		merged = append(merged, feedItem{ID: ev.ID, CreatedAt: ev.CreatedAt})
	}
	// Same ordering rule as the filter evaluator.
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt != merged[j].CreatedAt {
			return merged[i].CreatedAt > merged[j].CreatedAt
		}
		return merged[i].ID < merged[j].ID
	})

	state.Items = merged
	if len(merged) > 0 {
		oldest := merged[len(merged)-1]
		state.Cursor.LastTimestamp = oldest.CreatedAt
		state.Cursor.LastID = oldest.ID
	}
	c.store.Set(ctx, feedKey, state, online)
	c.events.PutMany(ctx, events, online)
}

// Get resolves the feed's id sequence through the event cache, newest first.
// Ids whose events have expired out of the event cache are omitted rather
// than failing the read.
func (c *FeedCache) Get(ctx context.Context, feedKey string) ([]event.Event, bool) {
	state, ok := c.store.Get(ctx, feedKey)
	if !ok {
		return nil, false
	}
	ids := make([]string, len(state.Items))
	for i, it := range state.Items {
		ids[i] = it.ID
	}
	found, _ := c.events.GetMany(ctx, ids)
	out := make([]event.Event, 0, len(found))
	for _, id := range ids {
		if ev, ok := found[id]; ok {
			out = append(out, ev)
		}
	}
	return out, true
}

func (c *FeedCache) Cursor(ctx context.Context, feedKey string) (ports.FeedCursor, bool) {
	state, ok := c.store.Get(ctx, feedKey)
	if !ok {
		return ports.FeedCursor{}, false
	}
	return state.Cursor, true
}

// MarkExhausted records that the network has no further pages for this feed.
// A feed with no cached state stays unknown; there is nothing to mark.
func (c *FeedCache) MarkExhausted(ctx context.Context, feedKey string, online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.store.Get(ctx, feedKey)
	if !ok {
		return
	}
	state.Cursor.Exhausted = true
	c.store.Set(ctx, feedKey, state, online)
}

func (c *FeedCache) Invalidate(ctx context.Context, feedKey string) {
	c.store.Invalidate(ctx, feedKey)
}

// InvalidatePrefix discards every feed whose key starts with prefix, leaving
// other feeds and other caches untouched.
func (c *FeedCache) InvalidatePrefix(ctx context.Context, prefix string) {
	c.store.InvalidatePrefix(ctx, prefix)
}

func (c *FeedCache) Name() string                  { return c.store.Name() }
func (c *FeedCache) Len() int                      { return c.store.Len() }
func (c *FeedCache) Prune(ctx context.Context) int { return c.store.Prune(ctx) }

func (c *FeedCache) StartSweeper(interval time.Duration) { c.store.StartSweeper(interval) }
func (c *FeedCache) Close()                              { c.store.Close() }

var _ ports.FeedCache = (*FeedCache)(nil)
var _ ports.CacheMaintenance = (*FeedCache)(nil)
