package storage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// BreakerConfig tunes the circuit breaker guarding a durable storage backend.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// ReadyToTrip inputs: trip once FailureThreshold of the last window's
	// requests failed, but only after MinRequests have been observed.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns conservative defaults: the cache engine
// already swallows storage errors, so the breaker only needs to stop a dead
// backend from costing a timeout per mirror write.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Breaker wraps a StorageAdapter with a circuit breaker. While the circuit
// is open every operation fails fast, degrading the cache to memory-only
// until the backend recovers.
type Breaker struct {
	inner ports.StorageAdapter
	cb    *gobreaker.CircuitBreaker
}

func NewBreaker(inner ports.StorageAdapter, cfg BreakerConfig, logger *logrus.Logger) *Breaker {
	if logger == nil {
		logger = logrus.New()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("storage circuit breaker state changed")
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

func (b *Breaker) Read(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		value []byte
		ok    bool
	}
	res, err := b.cb.Execute(func() (any, error) {
		value, ok, err := b.inner.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		return result{value: value, ok: ok}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(result)
	return r.value, r.ok, nil
}

func (b *Breaker) Write(ctx context.Context, key string, value []byte) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Write(ctx, key, value)
	})
	return err
}

func (b *Breaker) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Delete(ctx, key)
	})
	return err
}

func (b *Breaker) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.KeysWithPrefix(ctx, prefix)
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

// State exposes the breaker state for health reporting.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

var _ ports.StorageAdapter = (*Breaker)(nil)
