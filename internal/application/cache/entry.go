package cache

import "time"

// Entry wraps a cached value with its expiry bookkeeping. Entries are
// replaced wholesale on overwrite; there is no partial merge. The same
// structure is the durable-tier envelope, so hydration can evaluate expiry
// before trusting the payload.
type Entry[T any] struct {
	Value     T         `json:"value"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the entry has not yet expired at now.
func (e Entry[T]) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
