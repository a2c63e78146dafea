package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// Storage implements ports.StorageAdapter on a Redis client. Entries are
// written without a Redis-side expiry; the cache engine owns the TTL
// discipline through its envelope, and prune sweeps clean up after it.
type Storage struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix string
}

// NewStorage creates a Redis-backed storage adapter.
func NewStorage(r redis.Cmdable, prefix string) *Storage {
	return &Storage{r: r, prefix: prefix}
}

func (s *Storage) namespaced(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Read implements StorageAdapter.Read.
func (s *Storage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.r.Get(ctx, s.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Write implements StorageAdapter.Write.
func (s *Storage) Write(ctx context.Context, key string, value []byte) error {
	return s.r.Set(ctx, s.namespaced(key), value, 0).Err()
}

// Delete implements StorageAdapter.Delete.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.r.Del(ctx, s.namespaced(key)).Err()
}

// globEscaper neutralizes SCAN MATCH metacharacters so caller-supplied key
// segments are matched literally.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeMatch returns the pattern matching exactly the keys that start with
// prefix.
func escapeMatch(prefix string) string {
	return globEscaper.Replace(prefix) + "*"
}

// KeysWithPrefix implements StorageAdapter.KeysWithPrefix via SCAN, returning
// keys in the adapter's key space (namespace stripped).
func (s *Storage) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	match := escapeMatch(s.namespaced(prefix))
	strip := 0
	if s.prefix != "" {
		strip = len(s.prefix) + 1
	}

	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.r.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys with prefix %q: %w", prefix, err)
		}
		for _, k := range batch {
			keys = append(keys, k[strip:])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

var _ ports.StorageAdapter = (*Storage)(nil)
