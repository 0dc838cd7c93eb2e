// Package querycache provides a keyed cache over asynchronous fetch
// functions. For every key it guarantees at most one in-flight fetch,
// serves cached data while a staleness window holds, revalidates stale
// data in the background, and evicts entries that have gone unobserved
// for a retention window.
package querycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the lifecycle state of a cache entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Default freshness and retention windows, applied when Options leaves
// them zero. They match the most common windows of the query call sites.
const (
	DefaultStaleTime = 5 * time.Minute
	DefaultGCTime    = 10 * time.Minute
)

// ErrDisabled is returned by the typed helpers when a query is observed
// while disabled. Disabled queries never fetch and never create entries.
var ErrDisabled = errors.New("querycache: query is disabled")

// FetchFunc loads the value for a key. It is invoked at most once per key
// at any time; concurrent observers share the single invocation.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Options control freshness, retention and enablement for one observation.
type Options struct {
	// StaleTime is how long a successful result is served without
	// triggering a background refetch. Zero means DefaultStaleTime.
	StaleTime time.Duration

	// GCTime is how long an entry survives after its last observer
	// detaches. Zero means DefaultGCTime.
	GCTime time.Duration

	// Disabled suppresses fetching entirely; the observation reports
	// StatusIdle and no entry is created.
	Disabled bool
}

func (o Options) staleTime() time.Duration {
	if o.StaleTime <= 0 {
		return DefaultStaleTime
	}
	return o.StaleTime
}

func (o Options) gcTime() time.Duration {
	if o.GCTime <= 0 {
		return DefaultGCTime
	}
	return o.GCTime
}

// Result is the observer-visible state of an entry at observation time.
type Result struct {
	Status    Status
	Data      interface{}
	Err       error
	FetchedAt time.Time

	// Stale is true when Data was served from cache while a background
	// refetch runs or is about to run.
	Stale bool
}

// StatsRecorder receives cache hit/miss counts. Implemented by the
// observability collector; a nil recorder disables recording.
type StatsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// call is one in-flight fetch, shared by every observer that attaches
// while it runs.
type call struct {
	done chan struct{}
	data interface{}
	err  error
}

// entry is one cache slot. All fields are guarded by the Cache mutex.
type entry struct {
	key       Key
	status    Status
	data      interface{}
	hasData   bool
	err       error
	fetchedAt time.Time
	invalid   bool
	// invalidations counts Invalidate hits on this entry; a fetch only
	// clears invalid when no invalidation landed after it was issued.
	invalidations uint64
	staleTime     time.Duration
	gcTime        time.Duration
	observers     int
	inflight      *call
	gcTimer       stopper
	gcGen         uint64
}

// Cache coordinates fetches by key. The zero value is not usable; construct
// with NewCache. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   clock
	logger  *zap.Logger
	stats   StatsRecorder
}

// NewCache creates an empty cache. stats may be nil.
func NewCache(logger *zap.Logger, stats StatsRecorder) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries: make(map[string]*entry),
		clock:   realClock{},
		logger:  logger,
		stats:   stats,
	}
}

// Get observes the entry for key, fetching through fetch as the staleness
// policy demands:
//
//   - disabled: reports StatusIdle, touches nothing;
//   - fresh success: returns the cached value, no fetch;
//   - stale or invalidated success: returns the cached value immediately
//     and triggers a single background refetch;
//   - cold or errored without data: blocks on the (possibly already
//     running) fetch until it settles or ctx is done.
//
// The caller counts as an observer for the duration of the call; when the
// last observer detaches the entry is scheduled for eviction after its
// retention window.
func (c *Cache) Get(ctx context.Context, key Key, fetch FetchFunc, opts Options) Result {
	if opts.Disabled {
		return Result{Status: StatusIdle}
	}

	keyStr := key.String()

	c.mu.Lock()
	e, ok := c.entries[keyStr]
	if !ok {
		e = &entry{
			key:       key,
			status:    StatusIdle,
			staleTime: opts.staleTime(),
			gcTime:    opts.gcTime(),
		}
		c.entries[keyStr] = e
	}
	// Later observers may carry refreshed windows for the same key.
	e.staleTime = opts.staleTime()
	e.gcTime = opts.gcTime()
	c.attachLocked(e)
	defer func() {
		c.mu.Lock()
		c.detachLocked(keyStr, e)
		c.mu.Unlock()
	}()

	now := c.clock.Now()
	fresh := e.status == StatusSuccess && !e.invalid && now.Sub(e.fetchedAt) < e.staleTime

	if fresh {
		res := c.resultLocked(e, false)
		c.mu.Unlock()
		c.recordHit()
		return res
	}

	if e.inflight == nil {
		c.startFetchLocked(ctx, keyStr, e, fetch)
	}
	inflight := e.inflight

	if e.hasData {
		// Stale-while-revalidate: cached data goes out immediately, the
		// refetch settles in the background.
		res := c.resultLocked(e, true)
		c.mu.Unlock()
		c.recordHit()
		return res
	}

	c.mu.Unlock()
	c.recordMiss()

	select {
	case <-inflight.done:
	case <-ctx.Done():
		// The fetch keeps running and will settle the entry; this
		// observer just stops waiting for it.
		return Result{Status: StatusLoading, Err: ctx.Err()}
	}

	c.mu.Lock()
	res := Result{
		Status:    StatusSuccess,
		Data:      inflight.data,
		Err:       inflight.err,
		FetchedAt: e.fetchedAt,
	}
	if inflight.err != nil {
		res.Status = StatusError
		res.Data = nil
	}
	c.mu.Unlock()
	return res
}

// Invalidate marks every entry whose key begins with prefix as stale. The
// next observation of a marked entry refetches regardless of its staleness
// window. It returns the number of entries marked.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.invalid = true
			e.invalidations++
			n++
		}
	}
	c.logger.Debug("cache entries invalidated",
		zap.String("prefix", prefix.String()),
		zap.Int("count", n),
	)
	return n
}

// Peek returns the current state of the entry for key without observing it
// and without triggering any fetch. The second return is false when no
// entry exists.
func (c *Cache) Peek(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return Result{}, false
	}
	return c.resultLocked(e, false), true
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// attachLocked registers an observer and cancels any pending eviction.
func (c *Cache) attachLocked(e *entry) {
	e.observers++
	e.gcGen++
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
}

// detachLocked unregisters an observer and, when it was the last one,
// schedules eviction after the entry's retention window.
func (c *Cache) detachLocked(keyStr string, e *entry) {
	e.observers--
	if e.observers > 0 {
		return
	}
	gen := e.gcGen
	e.gcTimer = c.clock.AfterFunc(e.gcTime, func() {
		c.evict(keyStr, gen)
	})
}

// evict removes an entry if no observer attached since the timer was set.
func (c *Cache) evict(keyStr string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[keyStr]
	if !ok || e.observers > 0 || e.gcGen != gen {
		return
	}
	delete(c.entries, keyStr)
	c.logger.Debug("cache entry evicted", zap.String("key", keyStr))
}

// startFetchLocked issues the single fetch for an entry. The dedup
// guarantee is enforced here, at issuance time: callers only reach this
// when e.inflight is nil.
func (c *Cache) startFetchLocked(ctx context.Context, keyStr string, e *entry, fetch FetchFunc) {
	cl := &call{done: make(chan struct{})}
	e.inflight = cl
	e.status = StatusLoading
	issuedAfter := e.invalidations

	// The triggering observer may abandon the fetch; its cancellation is
	// stripped so the result still settles the entry, while context values
	// carry through.
	fetchCtx := context.WithoutCancel(ctx)

	go func() {
		start := c.clock.Now()
		data, err := fetch(fetchCtx)

		c.mu.Lock()
		// The entry may have been evicted while the fetch ran; in that
		// case the result is discarded rather than applied.
		if cur, ok := c.entries[keyStr]; ok && cur == e {
			e.inflight = nil
			if err != nil {
				// Stale-while-error: data from the last success is
				// retained and keeps being served to observers.
				e.status = StatusError
				e.err = err
			} else {
				e.status = StatusSuccess
				e.data = data
				e.hasData = true
				e.err = nil
				e.fetchedAt = c.clock.Now()
				// An invalidation that landed mid-flight outranks this
				// result: the next observation must still refetch.
				if e.invalidations == issuedAfter {
					e.invalid = false
				}
			}
		}
		c.mu.Unlock()

		cl.data = data
		cl.err = err
		close(cl.done)

		if err != nil {
			c.logger.Warn("query fetch failed",
				zap.String("key", keyStr),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		c.logger.Debug("query fetch completed",
			zap.String("key", keyStr),
			zap.Duration("duration", time.Since(start)),
		)
	}()
}

// resultLocked snapshots an entry into an observer-visible Result.
func (c *Cache) resultLocked(e *entry, stale bool) Result {
	res := Result{
		Status:    e.status,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
		Stale:     stale,
	}
	if e.hasData {
		res.Data = e.data
	}
	return res
}

func (c *Cache) recordHit() {
	if c.stats != nil {
		c.stats.RecordCacheHit()
	}
}

func (c *Cache) recordMiss() {
	if c.stats != nil {
		c.stats.RecordCacheMiss()
	}
}
