package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-social/meridian/internal/core/ports"
	"github.com/meridian-social/meridian/internal/infrastructure/storage"
	"github.com/meridian-social/meridian/test/mocks"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	return Config{OnlineTTL: time.Minute, OfflineTTL: time.Hour, KeyPrefix: "test:"}
}

func newTestStore(t *testing.T, adapter ports.StorageAdapter) (*Store[string], *fakeClock) {
	t.Helper()
	s, err := NewStore[string](context.Background(), "test", testConfig(), adapter, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	clock := newFakeClock()
	s.now = clock.Now
	return s, clock
}

func TestStoreSetGet(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Set(ctx, "k", "v1", true)
	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "v1", got)

	// Overwrites replace the value wholesale.
	s.Set(ctx, "k", "v2", true)
	got, _ = s.Get(ctx, "k")
	require.Equal(t, "v2", got)
	require.Equal(t, 1, s.Len())
}

func TestStoreExpiryIsLazy(t *testing.T) {
	adapter := storage.NewMemory()
	s, clock := newTestStore(t, adapter)
	ctx := context.Background()

	s.Set(ctx, "k", "v", true)
	require.Eventually(t, func() bool { return adapter.Len() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(2 * time.Minute)

	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("entry past its online TTL should miss")
	}
	// The read evicts from memory and asynchronously from durable storage.
	require.Equal(t, 0, s.Len())
	require.Eventually(t, func() bool { return adapter.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStoreOfflineTTLOutlivesOnline(t *testing.T) {
	s, clock := newTestStore(t, nil)
	ctx := context.Background()

	s.Set(ctx, "online", "a", true)
	s.Set(ctx, "offline", "b", false)

	// Between the online and offline horizons only the offline entry lives.
	clock.Advance(30 * time.Minute)

	if _, ok := s.Get(ctx, "online"); ok {
		t.Fatal("online entry should have expired")
	}
	if _, ok := s.Get(ctx, "offline"); !ok {
		t.Fatal("offline entry should still be live")
	}

	clock.Advance(time.Hour)
	if _, ok := s.Get(ctx, "offline"); ok {
		t.Fatal("offline entry should expire past the offline TTL")
	}
}

func TestStorePrune(t *testing.T) {
	s, clock := newTestStore(t, nil)
	ctx := context.Background()

	s.Set(ctx, "short", "a", true)
	s.SetWithTTL(ctx, "long", "b", 24*time.Hour)

	require.Equal(t, 0, s.Prune(ctx))

	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, s.Prune(ctx))
	require.Equal(t, 1, s.Len())

	if _, ok := s.Get(ctx, "long"); !ok {
		t.Fatal("prune must not touch live entries")
	}
}

func TestStorePruneDurable(t *testing.T) {
	adapter := storage.NewMemory()
	s, clock := newTestStore(t, adapter)
	ctx := context.Background()

	s.Set(ctx, "k1", "a", true)
	s.Set(ctx, "k2", "b", true)
	require.Eventually(t, func() bool { return adapter.Len() == 2 }, time.Second, 5*time.Millisecond)

	clock.Advance(2 * time.Minute)
	require.Equal(t, 2, s.Prune(ctx))
	require.Equal(t, 0, s.Len())
	require.Equal(t, 0, adapter.Len())
}

func TestStorePruneDurable_MalformedEntryDiscarded(t *testing.T) {
	adapter := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, adapter.Write(ctx, "test:bad", []byte("{not json")))

	s, _ := newTestStore(t, adapter)
	// Hydration already drops the malformed entry from the durable tier.
	require.Equal(t, 0, s.Len())
	require.Equal(t, 0, adapter.Len())
}

func TestStoreHydration(t *testing.T) {
	adapter := storage.NewMemory()
	ctx := context.Background()
	now := time.Now()

	live, err := json.Marshal(Entry[string]{Value: "alive", StoredAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	expired, err := json.Marshal(Entry[string]{Value: "stale", StoredAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)})
	require.NoError(t, err)

	require.NoError(t, adapter.Write(ctx, "test:live", live))
	require.NoError(t, adapter.Write(ctx, "test:expired", expired))
	require.NoError(t, adapter.Write(ctx, "test:garbage", []byte("garbage")))
	// Entries under another namespace are not ours to touch.
	require.NoError(t, adapter.Write(ctx, "other:key", []byte("whatever")))

	s, _ := newTestStore(t, adapter)

	require.Equal(t, 1, s.Len())
	got, ok := s.Get(ctx, "live")
	require.True(t, ok)
	require.Equal(t, "alive", got)

	// Expired and malformed entries are dropped from the durable tier;
	// the foreign namespace survives.
	require.Equal(t, 2, adapter.Len())
	keys, err := adapter.KeysWithPrefix(ctx, "other:")
	require.NoError(t, err)
	require.Equal(t, []string{"other:key"}, keys)
}

func TestStoreInvalidate(t *testing.T) {
	adapter := storage.NewMemory()
	s, _ := newTestStore(t, adapter)
	ctx := context.Background()

	s.Set(ctx, "k", "v", true)
	require.Eventually(t, func() bool { return adapter.Len() == 1 }, time.Second, 5*time.Millisecond)

	s.Invalidate(ctx, "k")
	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("invalidated entry should miss")
	}
	require.Eventually(t, func() bool { return adapter.Len() == 0 }, time.Second, 5*time.Millisecond)

	// Invalidating an absent key is a no-op.
	s.Invalidate(ctx, "missing")
}

func TestStoreInvalidatePrefix(t *testing.T) {
	adapter := storage.NewMemory()
	s, _ := newTestStore(t, adapter)
	ctx := context.Background()

	s.Set(ctx, "a:1", "x", true)
	s.Set(ctx, "a:2", "y", true)
	s.Set(ctx, "b:1", "z", true)
	require.Eventually(t, func() bool { return adapter.Len() == 3 }, time.Second, 5*time.Millisecond)

	s.InvalidatePrefix(ctx, "a:")

	if _, ok := s.Get(ctx, "a:1"); ok {
		t.Fatal("a:1 should be gone")
	}
	if _, ok := s.Get(ctx, "a:2"); ok {
		t.Fatal("a:2 should be gone")
	}
	if _, ok := s.Get(ctx, "b:1"); !ok {
		t.Fatal("b:1 must survive a prefix invalidation for a:")
	}
	require.Eventually(t, func() bool { return adapter.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStoreGetOrLoad(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) (string, error) {
		loads.Add(1)
		return "fetched", nil
	}

	got, err := s.GetOrLoad(ctx, "k", true, load)
	require.NoError(t, err)
	require.Equal(t, "fetched", got)
	require.Equal(t, int32(1), loads.Load())

	// Second call hits the cache.
	got, err = s.GetOrLoad(ctx, "k", true, load)
	require.NoError(t, err)
	require.Equal(t, "fetched", got)
	require.Equal(t, int32(1), loads.Load())
}

func TestStoreGetOrLoad_CoalescesConcurrentMisses(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) (string, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "fetched", nil
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := s.GetOrLoad(ctx, "k", true, load)
			require.NoError(t, err)
			require.Equal(t, "fetched", got)
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), loads.Load())
}

func TestStoreGetOrLoad_LoadError(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	want := errors.New("relay unreachable")
	_, err := s.GetOrLoad(ctx, "k", true, func(context.Context) (string, error) {
		return "", want
	})
	require.ErrorIs(t, err, want)

	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("failed load must not cache anything")
	}
}

func TestStoreSurvivesStorageFailures(t *testing.T) {
	broken := &mocks.StorageAdapterMock{
		ReadFn: func(ctx context.Context, key string) ([]byte, bool, error) {
			return nil, false, errors.New("backend down")
		},
		WriteFn: func(ctx context.Context, key string, value []byte) error {
			return errors.New("backend down")
		},
		DeleteFn: func(ctx context.Context, key string) error {
			return errors.New("backend down")
		},
		KeysWithPrefixFn: func(ctx context.Context, prefix string) ([]string, error) {
			return nil, errors.New("backend down")
		},
	}

	// Construction swallows the hydration failure.
	s, _ := newTestStore(t, broken)
	ctx := context.Background()

	s.Set(ctx, "k", "v", true)
	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	s.Invalidate(ctx, "k")
	require.Equal(t, 0, s.Prune(ctx))
}

func TestConfigValidate(t *testing.T) {
	valid := testConfig()
	require.NoError(t, valid.Validate())

	noOnline := valid
	noOnline.OnlineTTL = 0
	require.Error(t, noOnline.Validate())

	inverted := valid
	inverted.OfflineTTL = time.Second
	require.Error(t, inverted.Validate())

	noPrefix := valid
	noPrefix.KeyPrefix = ""
	require.Error(t, noPrefix.Validate())
}
