package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/domain/repository"
	"TokenPull/internal/usecase"
	xhttp "TokenPull/pkg/http"
	"TokenPull/pkg/retry"
)

var fastRetry = []retry.Option{
	retry.WithMaxAttempts(3),
	retry.WithBackoff(time.Millisecond, 2*time.Millisecond),
	retry.WithJitterRatio(0),
}

func newProvider(ctrl *gomock.Controller, name string) *MockTokenProvider {
	p := NewMockTokenProvider(ctrl)
	p.EXPECT().Name().Return(name).AnyTimes()
	return p
}

func TestFetchAllConcatenatesInProviderOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newProvider(ctrl, "a")
	b := newProvider(ctrl, "b")
	c := newProvider(ctrl, "c")

	a.EXPECT().FetchAll(gomock.Any()).DoAndReturn(func(context.Context) ([]models.RawRecord, error) {
		time.Sleep(20 * time.Millisecond)
		return []models.RawRecord{raw("x", "a", 1)}, nil
	})
	b.EXPECT().FetchAll(gomock.Any()).Return(nil, errors.New("boom"))
	c.EXPECT().FetchAll(gomock.Any()).Return([]models.RawRecord{raw("y", "c", 2), raw("z", "c", 3)}, nil)

	m := newCountingMetrics()
	o := usecase.NewFetchOrchestrator([]repository.TokenProvider{a, b, c}, nil, m, fastRetry...)
	got := o.FetchAll(context.Background())

	require.Len(t, got, 3)
	require.Equal(t, []string{"x", "y", "z"}, []string{got[0].Address, got[1].Address, got[2].Address})
	require.Equal(t, 1, m.count(m.failures, "b"))
	require.Equal(t, 0, m.count(m.retries, "b"), "plain errors are not retried")
	require.Equal(t, []string{"a", "b", "c"}, o.Providers())
}

func TestFetchAllRetriesTransientFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newProvider(ctrl, "dex")
	gomock.InOrder(
		p.EXPECT().FetchAll(gomock.Any()).Return(nil, &xhttp.StatusError{StatusCode: 429}),
		p.EXPECT().FetchAll(gomock.Any()).Return(nil, &xhttp.StatusError{StatusCode: 503}),
		p.EXPECT().FetchAll(gomock.Any()).Return([]models.RawRecord{raw("x", "dex", 1)}, nil),
	)

	m := newCountingMetrics()
	o := usecase.NewFetchOrchestrator([]repository.TokenProvider{p}, nil, m, fastRetry...)
	got := o.FetchAll(context.Background())

	require.Len(t, got, 1)
	require.Equal(t, 2, m.count(m.retries, "dex"))
	require.Equal(t, 0, m.count(m.failures, "dex"))
}

func TestFetchAllAllFailingYieldsEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newProvider(ctrl, "a")
	b := newProvider(ctrl, "b")
	a.EXPECT().FetchAll(gomock.Any()).Return(nil, &xhttp.StatusError{StatusCode: 500}).Times(3)
	b.EXPECT().FetchAll(gomock.Any()).Return(nil, &xhttp.StatusError{StatusCode: 404})

	o := usecase.NewFetchOrchestrator([]repository.TokenProvider{a, b}, nil, nil, fastRetry...)
	got := o.FetchAll(context.Background())

	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestFetchAllNoProviders(t *testing.T) {
	o := usecase.NewFetchOrchestrator(nil, nil, nil)
	require.Empty(t, o.FetchAll(context.Background()))
}
