package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// storageOpTimeout bounds every durable-tier operation so a stalled backend
// cannot pile up goroutines behind it.
const storageOpTimeout = 5 * time.Second

// Store is the generic two-tier TTL cache engine shared by every specialized
// cache. The in-memory tier is authoritative for the current process; the
// durable tier is a best-effort mirror whose failures are logged and
// swallowed. Expiry is lazy (checked on read), with Prune available for
// explicit sweeps.
type Store[T any] struct {
	name    string
	cfg     Config
	storage ports.StorageAdapter
	logger  *logrus.Logger
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry[T]

	sf      singleflight.Group
	mirrors sync.WaitGroup

	sweepOnce sync.Once
	stop      chan struct{}
}

// NewStore builds a store and eagerly hydrates its namespace from the
// durable tier, skipping entries that are already expired or fail to
// deserialize. A nil storage adapter yields a memory-only store.
func NewStore[T any](ctx context.Context, name string, cfg Config, storage ports.StorageAdapter, logger *logrus.Logger) (*Store[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	s := &Store[T]{
		name:    name,
		cfg:     cfg,
		storage: storage,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]Entry[T]),
		stop:    make(chan struct{}),
	}
	s.hydrate(ctx)
	return s, nil
}

// Name returns the cache name used in logs and metrics.
func (s *Store[T]) Name() string { return s.name }

// Len returns the number of in-memory entries, live or not.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the value stored under key if a live entry exists. An expired
// entry is evicted from both tiers and reported as a miss.
func (s *Store[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	sk := s.cfg.KeyPrefix + key
	now := s.now()

	s.mu.RLock()
	ent, ok := s.entries[sk]
	s.mu.RUnlock()

	if !ok {
		cacheMisses.WithLabelValues(s.name).Inc()
		return zero, false
	}
	if !ent.Live(now) {
		s.mu.Lock()
		if cur, still := s.entries[sk]; still && !cur.Live(now) {
			delete(s.entries, sk)
		}
		s.mu.Unlock()
		cacheEvictions.WithLabelValues(s.name).Inc()
		cacheMisses.WithLabelValues(s.name).Inc()
		s.mirrorDelete(sk)
		return zero, false
	}
	cacheHits.WithLabelValues(s.name).Inc()
	return ent.Value, true
}

// Set writes or overwrites the entry under key, choosing the online or
// offline TTL from the caller-supplied connectivity state.
func (s *Store[T]) Set(ctx context.Context, key string, value T, online bool) {
	s.SetWithTTL(ctx, key, value, s.cfg.TTL(online))
}

// SetWithTTL writes the entry with an explicit TTL override. The durable
// mirror happens asynchronously and never blocks or fails the write.
func (s *Store[T]) SetWithTTL(ctx context.Context, key string, value T, ttl time.Duration) {
	now := s.now()
	ent := Entry[T]{Value: value, StoredAt: now, ExpiresAt: now.Add(ttl)}
	sk := s.cfg.KeyPrefix + key

	s.mu.Lock()
	s.entries[sk] = ent
	s.mu.Unlock()

	s.mirrorWrite(sk, ent)
}

// GetOrLoad returns the cached value or, on miss, runs load to fetch it and
// caches the result. Concurrent misses on the same key share a single load.
func (s *Store[T]) GetOrLoad(ctx context.Context, key string, online bool, load func(context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(ctx, key); ok {
		return v, nil
	}
	res, err, _ := s.sf.Do(s.cfg.KeyPrefix+key, func() (any, error) {
		// A concurrent loader may have populated the entry already.
		if v, ok := s.Get(ctx, key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(ctx, key, v, online)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Invalidate removes the entry from both tiers unconditionally.
func (s *Store[T]) Invalidate(ctx context.Context, key string) {
	sk := s.cfg.KeyPrefix + key

	s.mu.Lock()
	_, existed := s.entries[sk]
	delete(s.entries, sk)
	s.mu.Unlock()

	if existed {
		cacheEvictions.WithLabelValues(s.name).Inc()
	}
	s.mirrorDelete(sk)
}

// InvalidatePrefix removes every entry whose key starts with prefix, from
// both tiers. The prefix is relative to this store's namespace.
func (s *Store[T]) InvalidatePrefix(ctx context.Context, prefix string) {
	full := s.cfg.KeyPrefix + prefix

	s.mu.Lock()
	removed := 0
	for sk := range s.entries {
		if strings.HasPrefix(sk, full) {
			delete(s.entries, sk)
			removed++
		}
	}
	s.mu.Unlock()
	cacheEvictions.WithLabelValues(s.name).Add(float64(removed))

	if s.storage == nil {
		return
	}
	s.mirrors.Add(1)
	go func() {
		defer s.mirrors.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storageOpTimeout)
		defer cancel()
		keys, err := s.storage.KeysWithPrefix(ctx, full)
		if err != nil {
			s.storageError("list", err)
			return
		}
		for _, k := range keys {
			if err := s.storage.Delete(ctx, k); err != nil {
				s.storageError("delete", err)
			}
		}
	}()
}

// Prune removes every entry, across both tiers, whose expiry has passed.
// It returns the number of entries removed for observability.
func (s *Store[T]) Prune(ctx context.Context) int {
	now := s.now()
	removed := make(map[string]bool)

	s.mu.Lock()
	for sk, ent := range s.entries {
		if !ent.Live(now) {
			delete(s.entries, sk)
			removed[sk] = true
		}
	}
	s.mu.Unlock()

	count := len(removed)
	count += s.pruneDurable(ctx, now, removed)
	cachePruned.WithLabelValues(s.name).Add(float64(count))
	if count > 0 {
		s.logger.WithFields(logrus.Fields{"cache": s.name, "removed": count}).Debug("pruned expired cache entries")
	}
	return count
}

// pruneDurable walks the durable namespace and deletes expired entries. Keys
// already pruned from memory are deleted without a read; the rest have their
// envelope checked first.
func (s *Store[T]) pruneDurable(ctx context.Context, now time.Time, alreadyCounted map[string]bool) int {
	if s.storage == nil {
		return 0
	}
	keys, err := s.storage.KeysWithPrefix(ctx, s.cfg.KeyPrefix)
	if err != nil {
		s.storageError("list", err)
		return 0
	}
	extra := 0
	for _, sk := range keys {
		if alreadyCounted[sk] {
			if err := s.storage.Delete(ctx, sk); err != nil {
				s.storageError("delete", err)
			}
			continue
		}
		raw, ok, err := s.storage.Read(ctx, sk)
		if err != nil || !ok {
			if err != nil {
				s.storageError("read", err)
			}
			continue
		}
		var envelope struct {
			ExpiresAt time.Time `json:"expires_at"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			// Malformed durable entries are treated as absent.
			if err := s.storage.Delete(ctx, sk); err != nil {
				s.storageError("delete", err)
			}
			extra++
			continue
		}
		if now.Before(envelope.ExpiresAt) {
			continue
		}
		if err := s.storage.Delete(ctx, sk); err != nil {
			s.storageError("delete", err)
			continue
		}
		extra++
	}
	return extra
}

// StartSweeper runs Prune on the given interval until Close. The sweep is a
// resource-bounding optimization only; lazy expiry on read keeps the cache
// correct without it.
func (s *Store[T]) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-s.stop:
					return
				case <-ticker.C:
					s.Prune(context.Background())
				}
			}
		}()
	})
}

// Close stops the sweeper and waits for outstanding durable mirror writes.
func (s *Store[T]) Close() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.mirrors.Wait()
}

// hydrate repopulates the in-memory tier from durable storage. Entries that
// are already expired or fail to deserialize are discarded from the durable
// tier instead of failing hydration.
func (s *Store[T]) hydrate(ctx context.Context) {
	if s.storage == nil {
		return
	}
	keys, err := s.storage.KeysWithPrefix(ctx, s.cfg.KeyPrefix)
	if err != nil {
		s.storageError("list", err)
		return
	}
	now := s.now()
	loaded, dropped := 0, 0
	for _, sk := range keys {
		raw, ok, err := s.storage.Read(ctx, sk)
		if err != nil || !ok {
			if err != nil {
				s.storageError("read", err)
			}
			continue
		}
		var ent Entry[T]
		if err := json.Unmarshal(raw, &ent); err != nil {
			s.logger.WithFields(logrus.Fields{"cache": s.name, "key": sk}).WithError(err).Warn("discarding malformed cache entry")
			_ = s.storage.Delete(ctx, sk)
			dropped++
			continue
		}
		if !ent.Live(now) {
			_ = s.storage.Delete(ctx, sk)
			dropped++
			continue
		}
		s.mu.Lock()
		s.entries[sk] = ent
		s.mu.Unlock()
		loaded++
	}
	if loaded > 0 || dropped > 0 {
		s.logger.WithFields(logrus.Fields{"cache": s.name, "loaded": loaded, "dropped": dropped}).Info("cache hydrated from durable storage")
	}
}

// values returns the live values currently in memory, without evicting
// expired ones; Get and Prune handle eviction.
func (s *Store[T]) values() []T {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.entries))
	for _, ent := range s.entries {
		if ent.Live(now) {
			out = append(out, ent.Value)
		}
	}
	return out
}

func (s *Store[T]) mirrorWrite(sk string, ent Entry[T]) {
	if s.storage == nil {
		return
	}
	raw, err := json.Marshal(ent)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"cache": s.name, "key": sk}).WithError(err).Debug("cache entry not serializable, skipping durable mirror")
		return
	}
	s.mirrors.Add(1)
	go func() {
		defer s.mirrors.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storageOpTimeout)
		defer cancel()
		if err := s.storage.Write(ctx, sk, raw); err != nil {
			s.storageError("write", err)
		}
	}()
}

func (s *Store[T]) mirrorDelete(sk string) {
	if s.storage == nil {
		return
	}
	s.mirrors.Add(1)
	go func() {
		defer s.mirrors.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storageOpTimeout)
		defer cancel()
		if err := s.storage.Delete(ctx, sk); err != nil {
			s.storageError("delete", err)
		}
	}()
}

func (s *Store[T]) storageError(op string, err error) {
	storageErrors.WithLabelValues(s.name, op).Inc()
	s.logger.WithFields(logrus.Fields{"cache": s.name, "op": op}).WithError(err).Warn("durable cache storage error")
}
