package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/meridian-social/meridian/internal/infrastructure/storage"
	"github.com/meridian-social/meridian/test/mocks"
)

func testBreakerConfig() storage.BreakerConfig {
	cfg := storage.DefaultBreakerConfig("test")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 1.0
	cfg.Timeout = time.Minute
	return cfg
}

func TestBreakerPassThrough(t *testing.T) {
	inner := storage.NewMemory()
	b := storage.NewBreaker(inner, testBreakerConfig(), nil)
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "k", []byte("v")))
	got, ok, err := b.Read(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	keys, err := b.KeysWithPrefix(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, keys)

	require.NoError(t, b.Delete(ctx, "k"))
	require.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerOpensOnRepeatedFailures(t *testing.T) {
	boom := errors.New("backend down")
	inner := &mocks.StorageAdapterMock{
		WriteFn: func(ctx context.Context, key string, value []byte) error { return boom },
	}
	b := storage.NewBreaker(inner, testBreakerConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Write(ctx, "k", nil), boom)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	// While open, calls fail fast without reaching the backend.
	err := b.Write(ctx, "k", nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, boom)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	// A lone write failure among successful reads must not trip the circuit.
	boom := errors.New("disk full")
	inner := &mocks.StorageAdapterMock{
		WriteFn: func(ctx context.Context, key string, value []byte) error { return boom },
		ReadFn: func(ctx context.Context, key string) ([]byte, bool, error) {
			return []byte("v"), true, nil
		},
	}
	b := storage.NewBreaker(inner, testBreakerConfig(), nil)
	ctx := context.Background()

	require.ErrorIs(t, b.Write(ctx, "k", nil), boom)
	got, ok, err := b.Read(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)
}
