package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"TokenPull/internal/domain/models"
	drepo "TokenPull/internal/domain/repository"
	"TokenPull/internal/services/merge"
	"TokenPull/internal/services/view"
	"TokenPull/pkg/cache"
	applogger "TokenPull/pkg/logger"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("token not found")

// DefaultSearchLimit caps search results.
const DefaultSearchLimit = 20

var snapshotKey = cache.GenerateKey("tokens", "snapshot")

type TokenAggregatorOption func(*TokenAggregator)

func WithSnapshotTTL(d time.Duration) TokenAggregatorOption {
	return func(a *TokenAggregator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

func WithSearchLimit(n int) TokenAggregatorOption {
	return func(a *TokenAggregator) {
		if n > 0 {
			a.searchLimit = n
		}
	}
}

// WithPublisher publishes every freshly computed snapshot.
func WithPublisher(p drepo.SnapshotPublisher) TokenAggregatorOption {
	return func(a *TokenAggregator) {
		a.publisher = p
	}
}

func WithAggregatorLogger(l *applogger.Logger) TokenAggregatorOption {
	return func(a *TokenAggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithAggregatorMetrics(m drepo.Metrics) TokenAggregatorOption {
	return func(a *TokenAggregator) {
		if m != nil {
			a.metrics = m
		}
	}
}

// TokenAggregator owns the merged snapshot: it is computed on a cache miss
// (once per key, however many callers ask) and shared read-only afterwards.
type TokenAggregator struct {
	fetcher     *FetchOrchestrator
	merger      *merge.Engine
	store       *cache.Store
	publisher   drepo.SnapshotPublisher
	ttl         time.Duration
	searchLimit int
	logger      *applogger.Logger
	metrics     drepo.Metrics
}

func NewTokenAggregator(fetcher *FetchOrchestrator, merger *merge.Engine, store *cache.Store, opts ...TokenAggregatorOption) *TokenAggregator {
	a := &TokenAggregator{
		fetcher:     fetcher,
		merger:      merger,
		store:       store,
		ttl:         30 * time.Second,
		searchLimit: DefaultSearchLimit,
		logger:      applogger.Nop(),
		metrics:     drepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns the current merged records. Callers must not modify them.
func (a *TokenAggregator) Snapshot(ctx context.Context) ([]models.Record, error) {
	return cache.GetOrCompute(ctx, a.store, snapshotKey, a.ttl, a.compute)
}

// Refresh drops the cached snapshot so the next read recomputes it.
func (a *TokenAggregator) Refresh(ctx context.Context) error {
	return a.store.Delete(ctx, snapshotKey)
}

func (a *TokenAggregator) compute(ctx context.Context) ([]models.Record, error) {
	start := time.Now()
	raws := a.fetcher.FetchAll(ctx)
	recs := a.merger.Merge(raws)
	if recs == nil {
		recs = []models.Record{}
	}
	dur := time.Since(start)
	a.metrics.RecordSnapshot(len(recs), dur)
	a.logger.Debug("aggregator: snapshot computed",
		applogger.Int("raw", len(raws)),
		applogger.Int("records", len(recs)),
		applogger.Duration("took", dur),
	)

	if a.publisher != nil && len(recs) > 0 {
		go a.publish(context.WithoutCancel(ctx), recs)
	}
	return recs, nil
}

func (a *TokenAggregator) publish(ctx context.Context, recs []models.Record) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.publisher.PublishSnapshot(ctx, recs); err != nil {
		a.metrics.RecordError("snapshot_publish")
		a.logger.Warn("aggregator: publish snapshot", applogger.Int("records", len(recs)), applogger.Error(err))
	}
}

// List applies v to the current snapshot.
func (a *TokenAggregator) List(ctx context.Context, v models.View) (models.Page, error) {
	recs, err := a.Snapshot(ctx)
	if err != nil {
		return models.Page{}, err
	}
	return view.Apply(recs, v), nil
}

// Search matches q case-insensitively against address, name and ticker, in
// snapshot order.
func (a *TokenAggregator) Search(ctx context.Context, q string) ([]models.Record, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []models.Record{}, nil
	}
	recs, err := a.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, a.searchLimit)
	for _, r := range recs {
		if strings.Contains(r.Address, q) ||
			strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Ticker), q) {
			out = append(out, r)
			if len(out) == a.searchLimit {
				break
			}
		}
	}
	return out, nil
}

// Get looks a record up by address.
func (a *TokenAggregator) Get(ctx context.Context, address string) (models.Record, error) {
	key := models.NormalizeAddress(address)
	recs, err := a.Snapshot(ctx)
	if err != nil {
		return models.Record{}, err
	}
	for _, r := range recs {
		if r.Address == key {
			return r, nil
		}
	}
	return models.Record{}, ErrNotFound
}
