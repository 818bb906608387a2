package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterSpendsAndRefills(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("expected the first two requests to pass")
	}
	if l.Allow("a") {
		t.Fatalf("expected bucket to be empty")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share a bucket")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("expected refill after 1.5s")
	}
}

func TestLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(11 * time.Minute)
	l.Allow("b")

	if got := l.Len(); got != 1 {
		t.Fatalf("expected idle key to be swept, have %d keys", got)
	}
}
