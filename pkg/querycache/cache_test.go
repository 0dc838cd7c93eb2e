package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock drives staleness and eviction deterministically. Advancing it
// fires any timers whose deadline has passed.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	mu       sync.Mutex
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	due := make([]*fakeTimer, 0)
	for _, t := range c.timers {
		if !t.deadline.After(c.now) {
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.mu.Lock()
		run := !t.stopped && !t.fired
		t.fired = true
		t.mu.Unlock()
		if run {
			t.f()
		}
	}
}

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	c := NewCache(zap.NewNop(), nil)
	clk := newFakeClock()
	c.clock = clk
	return c, clk
}

func TestGetDedupesConcurrentFetches(t *testing.T) {
	c, _ := newTestCache(t)

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "payload", nil
	}

	key := Key{"events", "search", "rock", "Berlin"}
	opts := Options{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(context.Background(), key, fetch, opts)
		}(i)
	}

	// Both observers must be attached to the same in-flight call before
	// it resolves.
	require.Eventually(t, func() bool {
		res, ok := c.Peek(key)
		return ok && res.Status == StatusLoading
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second caller must attach, not refetch")
	for _, res := range results {
		assert.Equal(t, StatusSuccess, res.Status)
		assert.Equal(t, "payload", res.Data)
		assert.NoError(t, res.Err)
	}
}

func TestFreshEntryServedWithoutRefetch(t *testing.T) {
	c, clk := newTestCache(t)

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v1", nil
	}
	key := Key{"events", "detail", "ev-1"}
	opts := Options{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}

	res := c.Get(context.Background(), key, fetch, opts)
	require.Equal(t, StatusSuccess, res.Status)

	clk.Advance(4 * time.Minute)
	res = c.Get(context.Background(), key, fetch, opts)

	assert.Equal(t, "v1", res.Data)
	assert.False(t, res.Stale)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStaleEntryServedImmediatelyAndRevalidated(t *testing.T) {
	c, clk := newTestCache(t)

	var calls int32
	fetched := make(chan struct{}, 4)
	fetch := func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt32(&calls, 1)
		fetched <- struct{}{}
		if n == 1 {
			return "v1", nil
		}
		return "v2", nil
	}
	key := Key{"events", "search", "jazz", "Oslo"}
	opts := Options{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}

	res := c.Get(context.Background(), key, fetch, opts)
	require.Equal(t, "v1", res.Data)
	<-fetched

	clk.Advance(6 * time.Minute)
	res = c.Get(context.Background(), key, fetch, opts)

	// Cached data goes out immediately; exactly one refetch runs behind it.
	assert.Equal(t, "v1", res.Data)
	assert.True(t, res.Stale)
	<-fetched

	require.Eventually(t, func() bool {
		peeked, ok := c.Peek(key)
		return ok && peeked.Status == StatusSuccess && peeked.Data == "v2"
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEntryEvictedAfterRetentionWindow(t *testing.T) {
	c, clk := newTestCache(t)

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}
	key := Key{"venues", "detail", "vn-1"}
	opts := Options{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}

	c.Get(context.Background(), key, fetch, opts)
	require.Equal(t, 1, c.Len())

	clk.Advance(11 * time.Minute)
	assert.Equal(t, 0, c.Len(), "unobserved entry must be gone after the retention window")

	// The next observation starts cold.
	res := c.Get(context.Background(), key, fetch, opts)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestReobservationCancelsEviction(t *testing.T) {
	c, clk := newTestCache(t)

	fetch := func(ctx context.Context) (interface{}, error) { return "v", nil }
	key := Key{"events", "detail", "ev-2"}
	opts := Options{StaleTime: 20 * time.Minute, GCTime: 10 * time.Minute}

	c.Get(context.Background(), key, fetch, opts)
	clk.Advance(9 * time.Minute)
	c.Get(context.Background(), key, fetch, opts)

	// The original timer's deadline passes, but a new observer attached.
	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.Len())

	clk.Advance(9 * time.Minute)
	assert.Equal(t, 0, c.Len())
}

func TestDisabledQueryStaysIdle(t *testing.T) {
	c, clk := newTestCache(t)

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}
	key := Key{"events", "search", "", ""}
	opts := Options{Disabled: true}

	res := c.Get(context.Background(), key, fetch, opts)
	assert.Equal(t, StatusIdle, res.Status)

	clk.Advance(2 * time.Hour)
	res = c.Get(context.Background(), key, fetch, opts)
	assert.Equal(t, StatusIdle, res.Status)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, c.Len(), "disabled observations must not create entries")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c, _ := newTestCache(t)

	var calls int32
	fetched := make(chan struct{}, 4)
	fetch := func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt32(&calls, 1)
		fetched <- struct{}{}
		if n == 1 {
			return "v1", nil
		}
		return "v2", nil
	}
	key := Key{"events", "search", "indie", "Lisbon"}
	opts := Options{StaleTime: time.Hour, GCTime: time.Hour}

	c.Get(context.Background(), key, fetch, opts)
	<-fetched

	marked := c.Invalidate(Key{"events"})
	assert.Equal(t, 1, marked)

	res := c.Get(context.Background(), key, fetch, opts)
	assert.Equal(t, "v1", res.Data)
	assert.True(t, res.Stale, "invalidated entry must refetch despite being inside its staleness window")
	<-fetched

	require.Eventually(t, func() bool {
		peeked, _ := c.Peek(key)
		return peeked.Data == "v2"
	}, time.Second, time.Millisecond)
}

func TestInvalidateDuringInflightFetchStillForcesRefetch(t *testing.T) {
	c, _ := newTestCache(t)

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			<-release
			return "v1", nil
		}
		return "v2", nil
	}
	key := Key{"events", "detail", "ev-7"}
	opts := Options{StaleTime: time.Hour, GCTime: time.Hour}

	done := make(chan Result, 1)
	go func() { done <- c.Get(context.Background(), key, fetch, opts) }()

	require.Eventually(t, func() bool {
		res, ok := c.Peek(key)
		return ok && res.Status == StatusLoading
	}, time.Second, time.Millisecond)

	// The fetch now in flight was issued before this invalidation, so its
	// result must not count as revalidated.
	require.Equal(t, 1, c.Invalidate(Key{"events"}))
	close(release)
	<-done

	res := c.Get(context.Background(), key, fetch, opts)
	assert.Equal(t, "v1", res.Data)
	assert.True(t, res.Stale, "entry invalidated mid-flight must refetch on the next observation")

	require.Eventually(t, func() bool {
		peeked, _ := c.Peek(key)
		return peeked.Data == "v2"
	}, time.Second, time.Millisecond)
}

func TestInvalidateMatchesByPrefixOnly(t *testing.T) {
	c, _ := newTestCache(t)

	fetch := func(ctx context.Context) (interface{}, error) { return "v", nil }
	opts := Options{StaleTime: time.Hour, GCTime: time.Hour}

	c.Get(context.Background(), Key{"events", "search", "a", "b"}, fetch, opts)
	c.Get(context.Background(), Key{"events", "detail", "ev-1"}, fetch, opts)
	c.Get(context.Background(), Key{"venues", "detail", "vn-1"}, fetch, opts)

	assert.Equal(t, 2, c.Invalidate(Key{"events"}))
	assert.Equal(t, 1, c.Invalidate(Key{"events", "detail"}))
	assert.Equal(t, 0, c.Invalidate(Key{"classifications"}))
}

func TestFailedFetchVisibleToAllObservers(t *testing.T) {
	c, _ := newTestCache(t)

	var calls int32
	release := make(chan struct{})
	fetchErr := errors.New("upstream down")
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil, fetchErr
	}
	key := Key{"events", "detail", "ev-3"}
	opts := Options{StaleTime: time.Minute, GCTime: time.Minute}

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(context.Background(), key, fetch, opts)
		}(i)
	}
	require.Eventually(t, func() bool {
		res, ok := c.Peek(key)
		return ok && res.Status == StatusLoading
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, res := range results {
		assert.Equal(t, StatusError, res.Status)
		assert.ErrorIs(t, res.Err, fetchErr)
		assert.Nil(t, res.Data)
	}
}

func TestStaleWhileErrorRetainsLastSuccess(t *testing.T) {
	c, clk := newTestCache(t)

	var calls int32
	fetched := make(chan struct{}, 4)
	fetch := func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt32(&calls, 1)
		fetched <- struct{}{}
		if n == 1 {
			return "v1", nil
		}
		return nil, errors.New("upstream down")
	}
	key := Key{"events", "search", "metal", "Hamburg"}
	opts := Options{StaleTime: 5 * time.Minute, GCTime: time.Hour}

	res := c.Get(context.Background(), key, fetch, opts)
	require.Equal(t, "v1", res.Data)
	<-fetched

	clk.Advance(6 * time.Minute)
	c.Get(context.Background(), key, fetch, opts)
	<-fetched

	require.Eventually(t, func() bool {
		peeked, _ := c.Peek(key)
		return peeked.Status == StatusError
	}, time.Second, time.Millisecond)

	// The failed refetch records its error but keeps serving the last
	// successful payload.
	peeked, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, StatusError, peeked.Status)
	assert.Error(t, peeked.Err)
	assert.Equal(t, "v1", peeked.Data)
}

func TestAbandonedObserverDoesNotCancelFetch(t *testing.T) {
	c, _ := newTestCache(t)

	release := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		<-release
		return "late", nil
	}
	key := Key{"venues", "search", "arena"}
	opts := Options{StaleTime: time.Minute, GCTime: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- c.Get(ctx, key, fetch, opts) }()

	require.Eventually(t, func() bool {
		res, ok := c.Peek(key)
		return ok && res.Status == StatusLoading
	}, time.Second, time.Millisecond)
	cancel()

	res := <-done
	assert.Equal(t, StatusLoading, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)

	// The fetch still settles the entry for later observers.
	close(release)
	require.Eventually(t, func() bool {
		peeked, ok := c.Peek(key)
		return ok && peeked.Status == StatusSuccess && peeked.Data == "late"
	}, time.Second, time.Millisecond)
}

type fetchCtxKey struct{}

func TestFetchContextCarriesObserverValuesWithoutCancellation(t *testing.T) {
	c, _ := newTestCache(t)

	var sawValue interface{}
	var cancelled bool
	fetch := func(ctx context.Context) (interface{}, error) {
		sawValue = ctx.Value(fetchCtxKey{})
		cancelled = ctx.Err() != nil
		return "v", nil
	}

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), fetchCtxKey{}, "req-42"))
	cancel()

	// An already-cancelled observer context: its values must reach the
	// fetch, its cancellation must not.
	c.Get(ctx, Key{"events", "detail", "ev-1"}, fetch, Options{StaleTime: time.Minute, GCTime: time.Minute})

	require.Eventually(t, func() bool {
		res, ok := c.Peek(Key{"events", "detail", "ev-1"})
		return ok && res.Status == StatusSuccess
	}, time.Second, time.Millisecond)

	assert.Equal(t, "req-42", sawValue)
	assert.False(t, cancelled, "fetch context must outlive the observer that triggered it")
}

func TestTypedFetch(t *testing.T) {
	c, _ := newTestCache(t)

	type page struct{ Total int }
	opts := Options{StaleTime: time.Minute, GCTime: time.Minute}

	got, err := Fetch(context.Background(), c, Key{"events", "search", "x", "y"},
		func(ctx context.Context) (*page, error) { return &page{Total: 3}, nil }, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Total)

	_, err = Fetch(context.Background(), c, Key{"events", "search", "", ""},
		func(ctx context.Context) (*page, error) { return nil, nil },
		Options{Disabled: true})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestKeyStructuralEquality(t *testing.T) {
	a := Key{"events", "search", "rock", "Berlin", 0}
	b := Key{"events", "search", "rock", "Berlin", 0}
	other := Key{"events", "search", "rock", "Munich", 0}

	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), other.String())
	assert.True(t, a.HasPrefix(Key{"events"}))
	assert.True(t, a.HasPrefix(Key{"events", "search"}))
	assert.False(t, a.HasPrefix(Key{"venues"}))
	assert.False(t, Key{"events"}.HasPrefix(a))
}
