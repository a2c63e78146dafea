package ports

import (
	"context"

	"github.com/meridian-social/meridian/internal/core/domain/event"
	"github.com/meridian-social/meridian/internal/core/domain/thread"
)

// FeedCursor is the pagination continuation marker for one feed. LastTimestamp
// and LastID identify the oldest item merged so far; Exhausted marks a feed
// the network reported no further pages for.
type FeedCursor struct {
	LastTimestamp int64  `json:"last_timestamp"`
	LastID        string `json:"last_id"`
	Exhausted     bool   `json:"exhausted"`
}

// ContentCache stores opaque string payloads (profile metadata blobs,
// link-preview content) under content-addressed keys.
type ContentCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, payload string, online bool)
	// GetOrFetch returns the cached payload or, on miss, runs fetch once even
	// under concurrent callers and caches its result.
	GetOrFetch(ctx context.Context, key string, online bool, fetch func(context.Context) (string, error)) (string, error)
	Invalidate(ctx context.Context, key string)
}

// EventCache stores individual protocol events keyed by id.
type EventCache interface {
	Get(ctx context.Context, id string) (event.Event, bool)
	// GetMany batch-resolves ids in a single pass, returning the events found
	// and the ids that missed.
	GetMany(ctx context.Context, ids []string) (map[string]event.Event, []string)
	Put(ctx context.Context, ev event.Event, online bool)
	PutMany(ctx context.Context, events []event.Event, online bool)
	// Query serves a subscription-style filter from cached entries only.
	Query(ctx context.Context, f event.Filter) []event.Event
	Invalidate(ctx context.Context, id string)
}

// FeedCache stores the known page of each named feed as an ordered id
// sequence plus its pagination cursor.
type FeedCache interface {
	// Get resolves the feed's ids through the event cache, newest first.
	// Ids whose events are no longer cached are omitted.
	Get(ctx context.Context, feedKey string) ([]event.Event, bool)
	// AppendPage merges a fetched page into the feed: de-duplicates by id,
	// re-sorts newest first and advances the cursor to the oldest item.
	AppendPage(ctx context.Context, feedKey string, events []event.Event, online bool)
	Cursor(ctx context.Context, feedKey string) (FeedCursor, bool)
	MarkExhausted(ctx context.Context, feedKey string, online bool)
	Invalidate(ctx context.Context, feedKey string)
}

// ThreadCache maintains the derived parent→children mapping for each
// conversation, keyed by root event id.
type ThreadCache interface {
	// AddEvent registers the event in its conversation and returns the
	// thread's root id.
	AddEvent(ctx context.Context, ev event.Event, online bool) string
	// GetThread reconstructs the conversation tree depth-first, resolving
	// children through the event cache. Missing children are omitted and
	// cyclic references are broken rather than followed.
	GetThread(ctx context.Context, rootID string) (*thread.Node, bool)
	Invalidate(ctx context.Context, rootID string)
}

// ListCache stores named member-id lists (user lists, mute lists) keyed by
// list type and owner.
type ListCache interface {
	Members(ctx context.Context, listType, owner string) ([]string, bool)
	Replace(ctx context.Context, listType, owner string, members []string, online bool)
	Add(ctx context.Context, listType, owner, memberID string, online bool)
	Remove(ctx context.Context, listType, owner, memberID string, online bool)
	Invalidate(ctx context.Context, listType, owner string)
	// InvalidateType discards every cached list of the given type.
	InvalidateType(ctx context.Context, listType string)
}

// CacheMaintenance is the upkeep surface shared by every specialized cache,
// used by the sweeper and the ops endpoints.
type CacheMaintenance interface {
	Name() string
	Len() int
	// Prune removes every expired entry from both tiers and returns how many
	// were removed.
	Prune(ctx context.Context) int
}
