package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-social/meridian/internal/core/domain/event"
)

func newTestFeedCache(t *testing.T) (*FeedCache, *EventCache) {
	t.Helper()
	events := newTestEventCache(t)
	c, err := NewFeedCache(context.Background(), testConfig(), nil, events, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, events
}

func feedIDs(t *testing.T, c *FeedCache, key string) []string {
	t.Helper()
	evs, ok := c.Get(context.Background(), key)
	require.True(t, ok)
	ids := make([]string, len(evs))
	for i, ev := range evs {
		ids[i] = ev.ID
	}
	return ids
}

func TestFeedCacheAppendPage(t *testing.T) {
	c, events := newTestFeedCache(t)
	ctx := context.Background()

	c.AppendPage(ctx, "tag:golang", []event.Event{
		{ID: "e1", CreatedAt: 30},
		{ID: "e2", CreatedAt: 10},
		{ID: "e3", CreatedAt: 20},
	}, true)

	require.Equal(t, []string{"e1", "e3", "e2"}, feedIDs(t, c, "tag:golang"))

	// The page's events land in the event cache too.
	if _, ok := events.Get(ctx, "e2"); !ok {
		t.Fatal("appended events should be cached individually")
	}

	cur, ok := c.Cursor(ctx, "tag:golang")
	require.True(t, ok)
	require.Equal(t, int64(10), cur.LastTimestamp)
	require.Equal(t, "e2", cur.LastID)
	require.False(t, cur.Exhausted)
}

func TestFeedCacheAppendPage_MergesAndDedupes(t *testing.T) {
	c, _ := newTestFeedCache(t)
	ctx := context.Background()

	c.AppendPage(ctx, "f", []event.Event{
		{ID: "e1", CreatedAt: 30},
		{ID: "e2", CreatedAt: 20},
	}, true)
	// Overlapping older page: e2 repeats, e3 and e4 are new.
	c.AppendPage(ctx, "f", []event.Event{
		{ID: "e2", CreatedAt: 20},
		{ID: "e3", CreatedAt: 15},
		{ID: "e4", CreatedAt: 5},
	}, true)

	require.Equal(t, []string{"e1", "e2", "e3", "e4"}, feedIDs(t, c, "f"))

	cur, ok := c.Cursor(ctx, "f")
	require.True(t, ok)
	require.Equal(t, int64(5), cur.LastTimestamp)
	require.Equal(t, "e4", cur.LastID)
}

func TestFeedCacheAppendPage_EmptyPageIsNoop(t *testing.T) {
	c, _ := newTestFeedCache(t)
	ctx := context.Background()

	c.AppendPage(ctx, "f", nil, true)
	if _, ok := c.Get(ctx, "f"); ok {
		t.Fatal("an empty page must not materialize the feed")
	}
}

func TestFeedCacheGet_OmitsExpiredEvents(t *testing.T) {
	c, events := newTestFeedCache(t)
	ctx := context.Background()

	c.AppendPage(ctx, "f", []event.Event{
		{ID: "e1", CreatedAt: 30},
		{ID: "e2", CreatedAt: 20},
	}, true)

	// An event aging out of the event cache thins the feed instead of
	// breaking it.
	events.Invalidate(ctx, "e2")
	require.Equal(t, []string{"e1"}, feedIDs(t, c, "f"))
}

func TestFeedCacheMarkExhausted(t *testing.T) {
	c, _ := newTestFeedCache(t)
	ctx := context.Background()

	// Unknown feeds stay unknown.
	c.MarkExhausted(ctx, "nope", true)
	if _, ok := c.Cursor(ctx, "nope"); ok {
		t.Fatal("marking an uncached feed should not create it")
	}

	c.AppendPage(ctx, "f", []event.Event{{ID: "e1", CreatedAt: 1}}, true)
	c.MarkExhausted(ctx, "f", true)

	cur, ok := c.Cursor(ctx, "f")
	require.True(t, ok)
	require.True(t, cur.Exhausted)
}

func TestFeedCacheInvalidate(t *testing.T) {
	c, _ := newTestFeedCache(t)
	ctx := context.Background()

	c.AppendPage(ctx, "tag:golang", []event.Event{{ID: "e1", CreatedAt: 1}}, true)
	c.AppendPage(ctx, "tag:nostr", []event.Event{{ID: "e2", CreatedAt: 2}}, true)
	c.AppendPage(ctx, "home:alice", []event.Event{{ID: "e3", CreatedAt: 3}}, true)

	c.Invalidate(ctx, "tag:golang")
	if _, ok := c.Get(ctx, "tag:golang"); ok {
		t.Fatal("invalidated feed should miss")
	}

	c.InvalidatePrefix(ctx, "tag:")
	if _, ok := c.Get(ctx, "tag:nostr"); ok {
		t.Fatal("prefix invalidation should cover all tag feeds")
	}
	if _, ok := c.Get(ctx, "home:alice"); !ok {
		t.Fatal("other feed namespaces must survive")
	}
}
