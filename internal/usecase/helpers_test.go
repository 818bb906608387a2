package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/domain/repository"
)

type countingMetrics struct {
	repository.NopMetrics

	mu       sync.Mutex
	retries  map[string]int
	failures map[string]int
	ticks    map[string]int
	pushes   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		retries:  map[string]int{},
		failures: map[string]int{},
		ticks:    map[string]int{},
		pushes:   map[string]int{},
	}
}

func (m *countingMetrics) RecordRetry(provider string) {
	m.mu.Lock()
	m.retries[provider]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordProviderFetch(provider string, _ int, err error, _ time.Duration) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.failures[provider]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordBroadcastTick(outcome string, _ time.Duration) {
	m.mu.Lock()
	m.ticks[outcome]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordPush(result string) {
	m.mu.Lock()
	m.pushes[result]++
	m.mu.Unlock()
}

func (m *countingMetrics) count(set map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return set[key]
}

func raw(addr, source string, volume float64) models.RawRecord {
	return models.RawRecord{
		Address:     addr,
		Name:        "Token " + addr,
		Ticker:      "T" + addr,
		Price:       1,
		Volume:      volume,
		Liquidity:   volume / 2,
		PriceChange: map[models.Period]float64{models.Period24h: 1},
		Protocol:    "raydium",
		Source:      source,
	}
}

func raws(n int, source string) []models.RawRecord {
	out := make([]models.RawRecord, n)
	for i := range out {
		out[i] = raw(fmt.Sprintf("addr%02d", i), source, float64(1000-i))
	}
	return out
}

type fakeSource struct {
	mu    sync.Mutex
	calls int
	recs  []models.Record
	err   error
}

func (f *fakeSource) Snapshot(context.Context) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.recs, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	got chan []models.Record
	err error
}

func (p *fakePublisher) PublishSnapshot(_ context.Context, recs []models.Record) error {
	p.got <- recs
	return p.err
}

func (p *fakePublisher) Close() error { return nil }
