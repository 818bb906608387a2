package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	applogger "TokenPull/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// Store is the two-tier cache. Reads try the remote tier while it is marked
// available and fall back to the local tier; writes always land locally and
// reach the remote tier opportunistically. Any remote error marks the tier
// unavailable until its transport reports a fresh connection or a health-check ping
// succeeds.
type Store struct {
	remote    Remote
	local     *MemoryCache
	available atomic.Bool
	group     singleflight.Group

	logger              *applogger.Logger
	observer            Observer
	healthCheckInterval time.Duration
	healthCheckTimeout  time.Duration

	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewStore creates a Store. Call Start to run the reconnect health check and Close
// to release the remote tier.
func NewStore(opts ...StoreOption) *Store {
	cfg := &StoreConfig{
		MemoryMaxSize:       1000,
		HealthCheckInterval: 5 * time.Second,
		HealthCheckTimeout:  time.Second,
		Observer:            nopObserver{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}

	s := &Store{
		remote:              cfg.Remote,
		local:               NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		logger:              cfg.Logger,
		observer:            cfg.Observer,
		healthCheckInterval: cfg.HealthCheckInterval,
		healthCheckTimeout:  cfg.HealthCheckTimeout,
		stopCh:              make(chan struct{}),
	}
	if s.remote != nil {
		s.available.Store(true)
		if n, ok := s.remote.(ConnectNotifier); ok {
			n.OnConnect(func() { s.markAvailable("connect") })
		}
	}
	return s
}

// Start pings the remote tier once and launches the health-check loop that watches
// for recovery while the tier is down.
func (s *Store) Start(ctx context.Context) {
	if s.remote == nil {
		return
	}
	s.startOnce.Do(func() {
		s.healthCheck(ctx)
		s.wg.Add(1)
		go s.healthCheckLoop(ctx)
	})
}

// Close stops the health-check loop and closes the remote tier when it supports it.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		if c, ok := s.remote.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// Available reports whether the remote tier is currently used.
func (s *Store) Available() bool {
	return s.remote != nil && s.available.Load()
}

// Get decodes the cached value for key into dest.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.getBytes(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return nil
}

// Set encodes value and writes it to both tiers.
func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	_ = s.local.SetBytes(ctx, key, data, expiration)

	if s.Available() {
		if err := s.remote.SetBytes(ctx, key, data, expiration); err != nil {
			s.markUnavailable("set", err)
		}
	}
	return nil
}

// Delete removes keys from both tiers.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	_ = s.local.Delete(ctx, keys...)
	if s.Available() {
		if err := s.remote.Delete(ctx, keys...); err != nil {
			s.markUnavailable("delete", err)
		}
	}
	return nil
}

func (s *Store) getBytes(ctx context.Context, key string) ([]byte, error) {
	if s.Available() {
		data, err := s.remote.GetBytes(ctx, key)
		switch {
		case err == nil:
			s.observer.RecordCacheResult(TierRemote, true)
			return data, nil
		case errors.Is(err, ErrCacheMiss):
			s.observer.RecordCacheResult(TierRemote, false)
		case ctx.Err() != nil:
			// caller gave up; says nothing about the remote tier
		default:
			s.markUnavailable("get", err)
		}
	}

	data, err := s.local.GetBytes(ctx, key)
	s.observer.RecordCacheResult(TierLocal, err == nil)
	return data, err
}

func (s *Store) markUnavailable(op string, err error) {
	if s.available.CompareAndSwap(true, false) {
		s.logger.Warn("cache: remote tier unavailable, using local tier",
			applogger.String("op", op),
			applogger.Error(err),
		)
		s.observer.RecordTierAvailability(TierRemote, false)
	}
}

func (s *Store) markAvailable(reason string) {
	if s.remote == nil {
		return
	}
	if s.available.CompareAndSwap(false, true) {
		s.logger.Info("cache: remote tier available", applogger.String("reason", reason))
		s.observer.RecordTierAvailability(TierRemote, true)
	}
}

func (s *Store) healthCheckLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.available.Load() {
				s.healthCheck(ctx)
			}
		}
	}
}

func (s *Store) healthCheck(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.healthCheckTimeout)
	defer cancel()
	if err := s.remote.Ping(pctx); err != nil {
		s.markUnavailable("ping", err)
		return
	}
	s.markAvailable("ping")
}

// GetOrCompute returns the cached value for key or computes it. At most one
// compute runs per key at a time: concurrent callers wait for and share the
// in-flight result, which is stored before any of them returns. Errors are
// shared with the waiters but never cached. The compute is detached from the
// caller's cancellation so one caller leaving does not fail the others.
func GetOrCompute[T any](ctx context.Context, s *Store, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var out T
	if err := s.Get(ctx, key, &out); err == nil {
		return out, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		cctx := context.WithoutCancel(ctx)
		var cached T
		if err := s.Get(cctx, key, &cached); err == nil {
			return cached, nil
		}

		val, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		if err := s.Set(cctx, key, val, ttl); err != nil {
			s.logger.Warn("cache: store computed value", applogger.String("key", key), applogger.Error(err))
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

var _ Service = (*Store)(nil)
