package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TokenPull/internal/domain/models"
	drepo "TokenPull/internal/domain/repository"
	"TokenPull/internal/services/view"
	applogger "TokenPull/pkg/logger"
)

// SnapshotSource supplies the records projected to subscribers.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]models.Record, error)
}

type BroadcasterOption func(*Broadcaster)

func WithInterval(d time.Duration) BroadcasterOption {
	return func(b *Broadcaster) {
		if d > 0 {
			b.interval = d
		}
	}
}

func WithBroadcasterLogger(l *applogger.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithBroadcasterMetrics(m drepo.Metrics) BroadcasterOption {
	return func(b *Broadcaster) {
		if m != nil {
			b.metrics = m
		}
	}
}

// Broadcaster pushes projections of the shared snapshot to every subscriber.
// A single loop owns the ticker and serves immediate push requests, so
// projections never interleave.
type Broadcaster struct {
	registry *SubscriptionRegistry
	source   SnapshotSource
	interval time.Duration
	logger   *applogger.Logger
	metrics  drepo.Metrics
	now      func() time.Time

	requests chan string
	stopped  chan struct{}
}

func NewBroadcaster(registry *SubscriptionRegistry, source SnapshotSource, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		registry: registry,
		source:   source,
		interval: 5 * time.Second,
		logger:   applogger.Nop(),
		metrics:  drepo.NopMetrics{},
		now:      time.Now,
		requests: make(chan string, 64),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect registers sub with v and asks for an immediate push.
func (b *Broadcaster) Connect(sub *Subscription, v models.View) {
	b.registry.Add(sub, v)
	b.metrics.SetSubscribers(b.registry.Len())
	b.request(sub.ID)
}

// Update replaces the view of id and asks for an immediate push.
func (b *Broadcaster) Update(id string, v models.View) error {
	if !b.registry.SetView(id, v) {
		return fmt.Errorf("subscriber %s: %w", id, ErrSubscriptionClosed)
	}
	b.request(id)
	return nil
}

func (b *Broadcaster) Disconnect(id string) {
	b.registry.Remove(id)
	b.metrics.SetSubscribers(b.registry.Len())
}

func (b *Broadcaster) Subscribers() int { return b.registry.Len() }

func (b *Broadcaster) request(id string) {
	select {
	case b.requests <- id:
	case <-b.stopped:
	}
}

// Run serves ticks and push requests until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	defer close(b.stopped)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("broadcaster: started", applogger.Duration("interval", b.interval))
	for {
		select {
		case <-ctx.Done():
			b.registry.CloseAll()
			b.metrics.SetSubscribers(0)
			b.logger.Info("broadcaster: stopped")
			return nil
		case <-ticker.C:
			b.Tick(ctx)
		case id := <-b.requests:
			b.pushOne(ctx, id)
		}
	}
}

// Tick projects one snapshot to every subscriber. With no subscribers the
// snapshot is not fetched.
func (b *Broadcaster) Tick(ctx context.Context) {
	start := time.Now()
	entries := b.registry.Entries()
	if len(entries) == 0 {
		b.metrics.RecordBroadcastTick("idle", time.Since(start))
		return
	}

	recs, err := b.source.Snapshot(ctx)
	if err != nil {
		b.metrics.RecordBroadcastTick("error", time.Since(start))
		b.logger.Warn("broadcaster: snapshot failed", applogger.Int("subscribers", len(entries)), applogger.Error(err))
		return
	}

	ts := b.now().UnixMilli()
	for _, e := range entries {
		b.push(e.Sub, updateMessage(view.Apply(recs, e.View), ts))
	}
	b.metrics.RecordBroadcastTick("ok", time.Since(start))
}

func (b *Broadcaster) pushOne(ctx context.Context, id string) {
	e, ok := b.registry.Get(id)
	if !ok {
		return
	}
	recs, err := b.source.Snapshot(ctx)
	if err != nil {
		b.logger.Warn("broadcaster: snapshot failed", applogger.String("subscriber", id), applogger.Error(err))
		b.push(e.Sub, models.OutboundMessage{
			Event: models.EventError,
			Data:  models.ErrorPayload{Message: "failed to load tokens"},
		})
		return
	}
	b.push(e.Sub, updateMessage(view.Apply(recs, e.View), b.now().UnixMilli()))
}

func (b *Broadcaster) push(sub *Subscription, msg models.OutboundMessage) {
	err := sub.Push(msg)
	switch {
	case err == nil:
		b.metrics.RecordPush("sent")
	case errors.Is(err, ErrBufferFull):
		b.metrics.RecordPush("dropped")
		b.logger.Debug("broadcaster: buffer full", applogger.String("subscriber", sub.ID))
	default:
		b.metrics.RecordPush("closed")
	}
}

func updateMessage(p models.Page, ts int64) models.OutboundMessage {
	recs := p.Records
	if recs == nil {
		recs = []models.Record{}
	}
	return models.OutboundMessage{
		Event: models.EventTokensUpdate,
		Data: models.UpdatePayload{
			Records:   recs,
			Timestamp: ts,
			Type:      "full",
			Metadata: models.UpdateMetadata{
				Total:      p.Total,
				Returned:   len(recs),
				NextCursor: p.NextCursor,
			},
		},
	}
}
