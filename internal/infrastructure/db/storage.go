package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// Storage implements ports.StorageAdapter on a single key-value table, so
// the durable tier works the same over a local sqlite file and a shared
// Postgres instance.
type Storage struct {
	db *Database
}

func NewStorage(db *Database) *Storage {
	return &Storage{db: db}
}

// Read implements StorageAdapter.Read.
func (s *Storage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	q := s.db.DB.Rebind(`SELECT value FROM cache_entries WHERE key = ?`)
	err := s.db.DB.GetContext(ctx, &value, q, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return value, true, nil
}

// Write implements StorageAdapter.Write as an upsert.
func (s *Storage) Write(ctx context.Context, key string, value []byte) error {
	q := s.db.DB.Rebind(`INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if _, err := s.db.DB.ExecContext(ctx, q, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete implements StorageAdapter.Delete.
func (s *Storage) Delete(ctx context.Context, key string) error {
	q := s.db.DB.Rebind(`DELETE FROM cache_entries WHERE key = ?`)
	if _, err := s.db.DB.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// likeEscaper neutralizes LIKE metacharacters. Prefixes carry caller-supplied
// segments (feed keys, list types), so a literal "_" must not act as a
// single-character wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// KeysWithPrefix implements StorageAdapter.KeysWithPrefix.
func (s *Storage) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	q := s.db.DB.Rebind(`SELECT key FROM cache_entries WHERE key LIKE ? ESCAPE '\' ORDER BY key`)
	if err := s.db.DB.SelectContext(ctx, &keys, q, likeEscaper.Replace(prefix)+"%"); err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	return keys, nil
}

var _ ports.StorageAdapter = (*Storage)(nil)
