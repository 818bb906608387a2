package cache

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/services/merge"

	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu       sync.Mutex
	data     map[string][]byte
	failing  bool
	pings    int
	connects []func()
}

func newFakeRemote() *fakeRemote { return &fakeRemote{data: make(map[string][]byte)} }

var errDown = errors.New("connection refused")

func (f *fakeRemote) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *fakeRemote) GetBytes(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errDown
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (f *fakeRemote) SetBytes(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errDown
	}
	f.data[key] = value
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errDown
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRemote) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.failing {
		return errDown
	}
	return nil
}

func (f *fakeRemote) OnConnect(fn func()) {
	f.mu.Lock()
	f.connects = append(f.connects, fn)
	f.mu.Unlock()
}

func (f *fakeRemote) reconnect() {
	f.mu.Lock()
	f.failing = false
	fns := f.connects
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func TestGetOrComputeRunsOncePerKey(t *testing.T) {
	t.Parallel()

	s := NewStore(WithRemote(newFakeRemote()))
	defer s.Close()

	const callers = 32
	var (
		calls   atomic.Int32
		release = make(chan struct{})
		wg      sync.WaitGroup
		results = make([][]string, callers)
		errs    = make([]error, callers)
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = GetOrCompute(context.Background(), s, "snap", time.Minute, func(context.Context) ([]string, error) {
				calls.Add(1)
				<-release
				return []string{"a", "b"}, nil
			})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, []string{"a", "b"}, results[i])
	}

	var cached []string
	require.NoError(t, s.Get(context.Background(), "snap", &cached))
	require.Equal(t, []string{"a", "b"}, cached)
}

func TestGetOrComputeCachesSnapshotBuiltFromNonFiniteInput(t *testing.T) {
	t.Parallel()

	s := NewStore(WithRemote(newFakeRemote()))
	defer s.Close()

	engine := merge.New()
	calls := 0
	compute := func(context.Context) ([]models.Record, error) {
		calls++
		return engine.Merge([]models.RawRecord{
			{Address: "0xa", Source: "x", Price: math.Inf(1), Volume: 3},
			{Address: "0xa", Source: "y", PriceChange: map[models.Period]float64{models.Period1h: math.NaN()}},
		}), nil
	}

	for i := 0; i < 3; i++ {
		recs, err := GetOrCompute(context.Background(), s, "k", time.Minute, compute)
		require.NoError(t, err)
		require.Len(t, recs, 1)
	}
	require.Equal(t, 1, calls)

	var cached []models.Record
	require.NoError(t, s.Get(context.Background(), "k", &cached))
	require.Len(t, cached, 1)
	require.Zero(t, cached[0].Price)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	s := NewStore()
	boom := errors.New("upstream exploded")
	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 42, nil
	}

	_, err := GetOrCompute(context.Background(), s, "k", time.Minute, compute)
	require.ErrorIs(t, err, boom)

	v, err := GetOrCompute(context.Background(), s, "k", time.Minute, compute)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 2, calls)

	v, err = GetOrCompute(context.Background(), s, "k", time.Minute, compute)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 2, calls, "third call must be served from cache")
}

func TestGetOrComputeSurvivesCallerCancellation(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	v, err := GetOrCompute(ctx, s, "k", time.Minute, func(cctx context.Context) (string, error) {
		cancel()
		require.NoError(t, cctx.Err())
		return "done", nil
	})
	require.NoError(t, err)
	require.Equal(t, "done", v)
}

func TestStoreFallsBackToLocalTier(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	s := NewStore(WithRemote(remote))
	ctx := context.Background()

	require.True(t, s.Available())
	require.NoError(t, s.Set(ctx, "k", "v1", time.Minute))

	remote.setFailing(true)

	var got string
	require.NoError(t, s.Get(ctx, "k", &got))
	require.Equal(t, "v1", got)
	require.False(t, s.Available())

	// writes still succeed while the remote is down
	require.NoError(t, s.Set(ctx, "k", "v2", time.Minute))
	require.NoError(t, s.Get(ctx, "k", &got))
	require.Equal(t, "v2", got)
}

func TestStoreRemoteMissFallsThroughToLocal(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	s := NewStore(WithRemote(remote))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", 7, time.Minute))
	require.NoError(t, remote.Delete(ctx, "k"))

	var got int
	require.NoError(t, s.Get(ctx, "k", &got))
	require.Equal(t, 7, got)
	require.True(t, s.Available(), "a miss is not a transport failure")
}

func TestStoreRecoversWhenTransportReconnects(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	s := NewStore(WithRemote(remote))

	remote.setFailing(true)
	require.NoError(t, s.Set(context.Background(), "k", 1, time.Minute))
	require.False(t, s.Available())

	remote.reconnect()
	require.True(t, s.Available())
}

func TestStoreHealthCheckRestoresAvailability(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.setFailing(true)
	s := NewStore(WithRemote(remote), WithHealthCheckInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	require.False(t, s.Available())

	remote.setFailing(false)
	require.Eventually(t, s.Available, time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close())
}

func TestStoreMissWithoutRemote(t *testing.T) {
	t.Parallel()

	s := NewStore()
	var v string
	require.ErrorIs(t, s.Get(context.Background(), "absent", &v), ErrCacheMiss)
	require.False(t, s.Available())
}
