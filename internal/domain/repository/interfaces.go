package repository

import (
	"context"
	"time"

	"TokenPull/internal/domain/models"
)

// SnapshotPublisher fans a freshly merged snapshot out to downstream consumers.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, records []models.Record) error
	Close() error
}

type Metrics interface {
	RecordProviderFetch(provider string, records int, err error, dur time.Duration)
	RecordRetry(provider string)
	RecordSnapshot(size int, dur time.Duration)
	RecordBroadcastTick(outcome string, dur time.Duration)
	RecordPush(result string)
	SetSubscribers(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordProviderFetch(string, int, error, time.Duration) {}
func (NopMetrics) RecordRetry(string)                                    {}
func (NopMetrics) RecordSnapshot(int, time.Duration)                     {}
func (NopMetrics) RecordBroadcastTick(string, time.Duration)             {}
func (NopMetrics) RecordPush(string)                                     {}
func (NopMetrics) SetSubscribers(int)                                    {}
func (NopMetrics) RecordError(string)                                    {}
func (NopMetrics) RecordLatency(string, float64)                         {}
