package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"TokenPull/internal/domain/models"
	drepo "TokenPull/internal/domain/repository"
	applogger "TokenPull/pkg/logger"
	"TokenPull/pkg/retry"
)

// FetchOrchestrator queries every provider in parallel and settles all of
// them: one provider failing never affects the others.
type FetchOrchestrator struct {
	providers []drepo.TokenProvider
	executors []*retry.Executor
	logger    *applogger.Logger
	metrics   drepo.Metrics
}

func NewFetchOrchestrator(providers []drepo.TokenProvider, logger *applogger.Logger, metrics drepo.Metrics, retryOpts ...retry.Option) *FetchOrchestrator {
	if logger == nil {
		logger = applogger.Nop()
	}
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	o := &FetchOrchestrator{
		providers: providers,
		executors: make([]*retry.Executor, len(providers)),
		logger:    logger,
		metrics:   metrics,
	}
	for i, p := range providers {
		name := p.Name()
		opts := append(append([]retry.Option{}, retryOpts...), retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			o.metrics.RecordRetry(name)
			o.logger.Debug("fetch: retrying provider",
				applogger.String("provider", name),
				applogger.Int("attempt", attempt),
				applogger.Duration("delay", delay),
				applogger.Error(err),
			)
		}))
		o.executors[i] = retry.New(opts...)
	}
	return o
}

// Providers returns the provider names in configured order.
func (o *FetchOrchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// FetchAll returns the concatenation of all provider results in configured
// order. Failed providers contribute nothing; if all fail the result is empty.
func (o *FetchOrchestrator) FetchAll(ctx context.Context) []models.RawRecord {
	slots := make([][]models.RawRecord, len(o.providers))

	var g errgroup.Group
	for i, p := range o.providers {
		i, p := i, p
		g.Go(func() error {
			start := time.Now()
			recs, err := retry.Do(ctx, o.executors[i], p.FetchAll)
			o.metrics.RecordProviderFetch(p.Name(), len(recs), err, time.Since(start))
			if err != nil {
				o.logger.Warn("fetch: provider failed",
					applogger.String("provider", p.Name()),
					applogger.Error(err),
				)
				return nil
			}
			slots[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, s := range slots {
		n += len(s)
	}
	out := make([]models.RawRecord, 0, n)
	for _, s := range slots {
		out = append(out, s...)
	}
	return out
}
