package cache

import (
	"fmt"
	"time"
)

// Storage key prefixes, one per specialized cache. Sharing one durable store
// across caches can never collide because every cache writes under its own
// prefix.
const (
	KeyPrefixContent = "content:"
	KeyPrefixEvent   = "event:"
	KeyPrefixFeed    = "feed:"
	KeyPrefixThread  = "thread:"
	KeyPrefixList    = "list:"
)

// Config is the immutable expiry policy injected into a cache at
// construction. One instance per specialized cache, not per entry.
type Config struct {
	OnlineTTL  time.Duration
	OfflineTTL time.Duration
	KeyPrefix  string
}

func (c Config) Validate() error {
	if c.OnlineTTL <= 0 {
		return fmt.Errorf("online TTL must be positive, got %s", c.OnlineTTL)
	}
	if c.OfflineTTL < c.OnlineTTL {
		return fmt.Errorf("offline TTL (%s) must be at least online TTL (%s)", c.OfflineTTL, c.OnlineTTL)
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("key prefix must not be empty")
	}
	return nil
}

// TTL returns the effective expiry for a fresh write. Connectivity is
// supplied by the caller at write time; the cache holds no network state.
func (c Config) TTL(online bool) time.Duration {
	if online {
		return c.OnlineTTL
	}
	return c.OfflineTTL
}
