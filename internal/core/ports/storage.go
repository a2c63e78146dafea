package ports

import "context"

// StorageAdapter abstracts the durable key-value tier that backs the caches.
// The in-memory tier stays authoritative for the lifetime of the process, so
// implementations may fail without breaking callers; the engine logs and
// swallows adapter errors.
type StorageAdapter interface {
	// Read returns the raw bytes for key. ok=false if not found.
	Read(ctx context.Context, key string) ([]byte, bool, error)
	// Write stores value under key, overwriting any previous value.
	Write(ctx context.Context, key string, value []byte) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// KeysWithPrefix lists every stored key starting with prefix.
	KeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
}
