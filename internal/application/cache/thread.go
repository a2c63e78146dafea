package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-social/meridian/internal/core/domain/event"
	"github.com/meridian-social/meridian/internal/core/domain/thread"
	"github.com/meridian-social/meridian/internal/core/ports"
)

// threadIndex is the derived parent→children mapping for one conversation.
// It is rebuilt from reply tags as events arrive and is never a second
// source of truth: the events themselves live in the event cache, and the
// index expires alongside them.
type threadIndex struct {
	Children map[string][]string `json:"children"`
}

// ThreadCache maintains conversation structure keyed by root event id.
type ThreadCache struct {
	// guards the index read-modify-write in AddEvent
	mu     sync.Mutex
	store  *Store[threadIndex]
	events *EventCache
}

func NewThreadCache(ctx context.Context, cfg Config, storage ports.StorageAdapter, events *EventCache, logger *logrus.Logger) (*ThreadCache, error) {
	cfg.KeyPrefix = KeyPrefixThread
	store, err := NewStore[threadIndex](ctx, "thread", cfg, storage, logger)
	if err != nil {
		return nil, err
	}
	return &ThreadCache{store: store, events: events}, nil
}

// AddEvent registers ev in its conversation: the root and immediate parent
// are resolved from the event's reply tags, and the event id is appended to
// the parent's ordered child list. Events with no parent reference become
// (or join) a root entry. Returns the thread's root id.
func (c *ThreadCache) AddEvent(ctx context.Context, ev event.Event, online bool) string {
	if ev.ID == "" {
		return ""
	}
	rootID := ev.ThreadRootID()

	c.mu.Lock()
	idx, ok := c.store.Get(ctx, rootID)
	if !ok || idx.Children == nil {
		idx = threadIndex{Children: make(map[string][]string)}
	}
	if parentID, replying := ev.ReplyParentID(); replying {
		if !containsString(idx.Children[parentID], ev.ID) {
			idx.Children[parentID] = append(idx.Children[parentID], ev.ID)
		}
	}
	c.store.Set(ctx, rootID, idx, online)
	c.mu.Unlock()

	c.events.Put(ctx, ev, online)
	return rootID
}

// GetThread reconstructs the conversation tree depth-first, resolving each
// id through the event cache. Ids referenced by the index but no longer
// cached are omitted. A visited set breaks cycles from malformed or
// adversarial reply tags, so traversal always terminates.
func (c *ThreadCache) GetThread(ctx context.Context, rootID string) (*thread.Node, bool) {
	idx, ok := c.store.Get(ctx, rootID)
	if !ok {
		return nil, false
	}
	rootEv, ok := c.events.Get(ctx, rootID)
	if !ok {
		return nil, false
	}
	visited := map[string]bool{rootID: true}
	return c.buildNode(ctx, rootEv, idx, visited), true
}

func (c *ThreadCache) buildNode(ctx context.Context, ev event.Event, idx threadIndex, visited map[string]bool) *thread.Node {
	node := &thread.Node{Event: ev}
	for _, childID := range idx.Children[ev.ID] {
		if visited[childID] {
			continue
		}
		visited[childID] = true
		childEv, ok := c.events.Get(ctx, childID)
		if !ok {
			continue
		}
		node.Replies = append(node.Replies, c.buildNode(ctx, childEv, idx, visited))
	}
	return node
}

func (c *ThreadCache) Invalidate(ctx context.Context, rootID string) {
	c.store.Invalidate(ctx, rootID)
}

func (c *ThreadCache) Name() string                  { return c.store.Name() }
func (c *ThreadCache) Len() int                      { return c.store.Len() }
func (c *ThreadCache) Prune(ctx context.Context) int { return c.store.Prune(ctx) }

func (c *ThreadCache) StartSweeper(interval time.Duration) { c.store.StartSweeper(interval) }
func (c *ThreadCache) Close()                              { c.store.Close() }

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var _ ports.ThreadCache = (*ThreadCache)(nil)
var _ ports.CacheMaintenance = (*ThreadCache)(nil)
