// Package cache provides a two-tier cache-aside store: a shared Redis tier
// that may drop out, backed by an always-available in-process tier.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Tier names used in logs and metrics.
const (
	TierRemote = "redis"
	TierLocal  = "memory"
)

// Service defines the cache operations components depend on.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// Remote is the shared tier. Implementations return ErrCacheMiss for absent
// keys and any other error for transport failures.
type Remote interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// ConnectNotifier is implemented by remotes whose transport can report that a
// connection was (re)established.
type ConnectNotifier interface {
	OnConnect(fn func())
}

// Observer receives cache events. pkg/metrics.Recorder implements it.
type Observer interface {
	RecordCacheResult(tier string, hit bool)
	RecordTierAvailability(tier string, up bool)
}

type nopObserver struct{}

func (nopObserver) RecordCacheResult(string, bool)      {}
func (nopObserver) RecordTierAvailability(string, bool) {}
