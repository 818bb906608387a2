// Package retry runs fallible operations with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Option configures Executor.
type Option func(*Config)

// Config holds retry policy.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// JitterRatio bounds the random jitter as a fraction of the exponential delay.
	JitterRatio float64
	Classifier  Classifier
	OnRetry     func(attempt int, delay time.Duration, err error)
}

// Classifier reports whether err is worth another attempt.
type Classifier func(err error) bool

// Retryable is implemented by errors that know whether they are transient.
type Retryable interface {
	Retryable() bool
}

// DefaultClassifier retries errors that declare themselves retryable.
func DefaultClassifier(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// WithMaxAttempts sets the total number of attempts including the first one.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithBackoff sets base and max delay.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Config) {
		if base > 0 {
			c.BaseDelay = base
		}
		if max > 0 {
			c.MaxDelay = max
		}
	}
}

// WithJitterRatio sets the jitter bound.
func WithJitterRatio(r float64) Option {
	return func(c *Config) {
		if r >= 0 {
			c.JitterRatio = r
		}
	}
}

// WithClassifier overrides which errors are retried.
func WithClassifier(fn Classifier) Option {
	return func(c *Config) {
		if fn != nil {
			c.Classifier = fn
		}
	}
}

// WithOnRetry registers a callback invoked before each backoff sleep.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(c *Config) {
		c.OnRetry = fn
	}
}

// Executor retries operations according to its Config.
type Executor struct {
	cfg   Config
	rnd   func() float64
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Executor. Defaults: 4 attempts, 500ms base, 10s cap, 30% jitter.
func New(opts ...Option) *Executor {
	cfg := Config{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		JitterRatio: 0.3,
		Classifier:  DefaultClassifier,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &Executor{cfg: cfg, rnd: rand.Float64, sleep: sleepCtx}
}

// Config returns a copy of the executor policy.
func (e *Executor) Config() Config { return e.cfg }

// Delay returns the wait before attempt k (k >= 1).
func (e *Executor) Delay(k int) time.Duration {
	if k < 1 {
		return 0
	}
	// Compare before shifting so large k cannot wrap around.
	if k >= 63 || e.cfg.BaseDelay > e.cfg.MaxDelay>>uint(k) {
		return e.cfg.MaxDelay
	}
	exp := e.cfg.BaseDelay << uint(k)
	jitter := time.Duration(e.rnd() * e.cfg.JitterRatio * float64(exp))
	d := exp + jitter
	if d > e.cfg.MaxDelay {
		d = e.cfg.MaxDelay
	}
	return d
}

// Run executes op until it succeeds, fails with a non-retryable error, or
// attempts are exhausted. The last error is returned.
func (e *Executor) Run(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is the typed form of Executor.Run.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.Delay(attempt)
			if e.cfg.OnRetry != nil {
				e.cfg.OnRetry(attempt, delay, lastErr)
			}
			if err := e.sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !e.cfg.Classifier(err) {
			return zero, err
		}
	}
	return zero, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
