package retry

import (
	"context"
	"time"
)

// SetSleep replaces the backoff sleeper so tests run without waiting.
func SetSleep(e *Executor, fn func(ctx context.Context, d time.Duration) error) { e.sleep = fn }

// SetRand pins the jitter source.
func SetRand(e *Executor, fn func() float64) { e.rnd = fn }
