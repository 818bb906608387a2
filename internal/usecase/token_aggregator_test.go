package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/domain/repository"
	"TokenPull/internal/services/merge"
	"TokenPull/internal/usecase"
	"TokenPull/pkg/cache"
)

func newAggregator(t *testing.T, providers []repository.TokenProvider, opts ...usecase.TokenAggregatorOption) *usecase.TokenAggregator {
	t.Helper()
	o := usecase.NewFetchOrchestrator(providers, nil, nil, fastRetry...)
	store := cache.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	return usecase.NewTokenAggregator(o, merge.New(), store, opts...)
}

func TestSnapshotComputesOnceForConcurrentCallers(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProvider(ctrl, "dex")
	p.EXPECT().FetchAll(gomock.Any()).DoAndReturn(func(context.Context) ([]models.RawRecord, error) {
		time.Sleep(30 * time.Millisecond)
		return raws(3, "dex"), nil
	}).Times(1)

	agg := newAggregator(t, []repository.TokenProvider{p})

	var wg sync.WaitGroup
	results := make([][]models.Record, 16)
	errs := make([]error, len(results))
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = agg.Snapshot(context.Background())
		}()
	}
	wg.Wait()

	for i, r := range results {
		require.NoError(t, errs[i])
		require.Len(t, r, 3)
	}

	// cached now: no further fetch
	recs, err := agg.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
}

func TestSnapshotMergesAcrossProviders(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newProvider(ctrl, "b-provider")
	b := newProvider(ctrl, "a-provider")
	a.EXPECT().FetchAll(gomock.Any()).Return([]models.RawRecord{raw("ABC", "b", 10)}, nil)
	b.EXPECT().FetchAll(gomock.Any()).Return([]models.RawRecord{raw("abc", "a", 50), raw("def", "a", 5)}, nil)

	agg := newAggregator(t, []repository.TokenProvider{a, b})
	recs, err := agg.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "abc", recs[0].Address)
	require.Equal(t, "a,b", recs[0].Source)
	require.Equal(t, 50.0, recs[0].Volume)
}

func TestSnapshotAllProvidersFailingIsEmptySuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProvider(ctrl, "dex")
	p.EXPECT().FetchAll(gomock.Any()).Return(nil, errors.New("down"))

	agg := newAggregator(t, []repository.TokenProvider{p})
	recs, err := agg.Snapshot(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestListPageSizesShareTotal(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProvider(ctrl, "dex")
	p.EXPECT().FetchAll(gomock.Any()).Return(raws(30, "dex"), nil).Times(1)
	agg := newAggregator(t, []repository.TokenProvider{p})

	five, err := agg.List(context.Background(), models.View{Page: models.PageSpec{Limit: 5}})
	require.NoError(t, err)
	ten, err := agg.List(context.Background(), models.View{Page: models.PageSpec{Limit: 10}})
	require.NoError(t, err)

	require.Len(t, five.Records, 5)
	require.Len(t, ten.Records, 10)
	require.Equal(t, 30, five.Total)
	require.Equal(t, five.Total, ten.Total)
	require.Equal(t, "5", five.NextCursor)
	require.Equal(t, "10", ten.NextCursor)
}

func TestSearchAndGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProvider(ctrl, "dex")
	p.EXPECT().FetchAll(gomock.Any()).Return(raws(30, "dex"), nil).Times(1)
	agg := newAggregator(t, []repository.TokenProvider{p}, usecase.WithSearchLimit(usecase.DefaultSearchLimit))
	ctx := context.Background()

	all, err := agg.Search(ctx, "TOKEN")
	require.NoError(t, err)
	require.Len(t, all, usecase.DefaultSearchLimit)

	one, err := agg.Search(ctx, "taddr07")
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, "addr07", one[0].Address)

	none, err := agg.Search(ctx, "  ")
	require.NoError(t, err)
	require.Empty(t, none)

	rec, err := agg.Get(ctx, "  ADDR03 ")
	require.NoError(t, err)
	require.Equal(t, "addr03", rec.Address)

	_, err = agg.Get(ctx, "missing")
	require.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestSnapshotPublishesFreshRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProvider(ctrl, "dex")
	p.EXPECT().FetchAll(gomock.Any()).Return(raws(2, "dex"), nil).Times(2)

	pub := &fakePublisher{got: make(chan []models.Record, 2), err: errors.New("kafka down")}
	agg := newAggregator(t, []repository.TokenProvider{p}, usecase.WithPublisher(pub))
	ctx := context.Background()

	_, err := agg.Snapshot(ctx)
	require.NoError(t, err, "publish failure never reaches callers")

	select {
	case got := <-pub.got:
		require.Len(t, got, 2)
	case <-time.After(time.Second):
		t.Fatal("snapshot was not published")
	}

	require.NoError(t, agg.Refresh(ctx))
	_, err = agg.Snapshot(ctx)
	require.NoError(t, err)
	select {
	case <-pub.got:
	case <-time.After(time.Second):
		t.Fatal("recomputed snapshot was not published")
	}
}
