package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-social/meridian/internal/core/domain/event"
	"github.com/meridian-social/meridian/internal/core/ports"
)

// EventCache stores individual protocol events keyed by id. Events are
// immutable under content addressing, so re-receiving a known id simply
// rewrites the identical value and refreshes its expiry.
type EventCache struct {
	store *Store[event.Event]
}

func NewEventCache(ctx context.Context, cfg Config, storage ports.StorageAdapter, logger *logrus.Logger) (*EventCache, error) {
	cfg.KeyPrefix = KeyPrefixEvent
	store, err := NewStore[event.Event](ctx, "event", cfg, storage, logger)
	if err != nil {
		return nil, err
	}
	return &EventCache{store: store}, nil
}

func (c *EventCache) Get(ctx context.Context, id string) (event.Event, bool) {
	return c.store.Get(ctx, id)
}

// GetMany batch-resolves ids in a single pass over the engine. It returns
// the events found keyed by id and the ids that missed, preserving the
// caller's order for the misses.
func (c *EventCache) GetMany(ctx context.Context, ids []string) (map[string]event.Event, []string) {
	found := make(map[string]event.Event, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := found[id]; dup {
			continue
		}
		if ev, ok := c.store.Get(ctx, id); ok {
			found[id] = ev
			continue
		}
		missing = append(missing, id)
	}
	return found, missing
}

func (c *EventCache) Put(ctx context.Context, ev event.Event, online bool) {
	if ev.ID == "" {
		return
	}
	c.store.Set(ctx, ev.ID, ev, online)
}

func (c *EventCache) PutMany(ctx context.Context, events []event.Event, online bool) {
	for _, ev := range events {
		c.Put(ctx, ev, online)
	}
}

// Query evaluates a subscription-style filter against the cached entries
// only, in the evaluator's deterministic order. A miss here means the caller
// needs a network round-trip, not that matching events don't exist.
func (c *EventCache) Query(ctx context.Context, f event.Filter) []event.Event {
	return f.SelectAll(c.store.values())
}

func (c *EventCache) Invalidate(ctx context.Context, id string) {
	c.store.Invalidate(ctx, id)
}

func (c *EventCache) Name() string                  { return c.store.Name() }
func (c *EventCache) Len() int                      { return c.store.Len() }
func (c *EventCache) Prune(ctx context.Context) int { return c.store.Prune(ctx) }

func (c *EventCache) StartSweeper(interval time.Duration) { c.store.StartSweeper(interval) }
func (c *EventCache) Close()                              { c.store.Close() }

var _ ports.EventCache = (*EventCache)(nil)
var _ ports.CacheMaintenance = (*EventCache)(nil)
