package mocks

import (
	"context"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// StorageAdapterMock is a lightweight mock for StorageAdapter. Unset
// functions behave like an empty, healthy backend.
type StorageAdapterMock struct {
	ReadFn           func(ctx context.Context, key string) ([]byte, bool, error)
	WriteFn          func(ctx context.Context, key string, value []byte) error
	DeleteFn         func(ctx context.Context, key string) error
	KeysWithPrefixFn func(ctx context.Context, prefix string) ([]string, error)
}

func (m *StorageAdapterMock) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if m.ReadFn != nil {
		return m.ReadFn(ctx, key)
	}
	return nil, false, nil
}

func (m *StorageAdapterMock) Write(ctx context.Context, key string, value []byte) error {
	if m.WriteFn != nil {
		return m.WriteFn(ctx, key, value)
	}
	return nil
}

func (m *StorageAdapterMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	return nil
}

func (m *StorageAdapterMock) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	if m.KeysWithPrefixFn != nil {
		return m.KeysWithPrefixFn(ctx, prefix)
	}
	return nil, nil
}

var _ ports.StorageAdapter = (*StorageAdapterMock)(nil)
