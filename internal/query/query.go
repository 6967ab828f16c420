// Package query caches fetched data per key with a staleness window and
// optional background refetch, so every panel of the dashboard shares one
// orchestration model: serve cached data while fresh, refetch when stale,
// and hold errors for the consumer instead of propagating them into
// rendering.
package query

import (
	"context"
	"sync"
	"time"
)

// Default windows. Data younger than StaleAfter is served without a fetch;
// a Runner refetches enabled queries every RefetchEvery.
const (
	StaleAfter   = 15 * time.Minute
	RefetchEvery = 30 * time.Minute
)

// Query caches one fetchable value under a stable key.
type Query[T any] struct {
	Key   string
	Fetch func(ctx context.Context) (T, error)
	// Enabled gates fetching; a disabled query never issues its Fetch and
	// serves only what it already has. Nil means always enabled.
	Enabled func() bool
	// StaleAfter overrides the default staleness window when > 0.
	StaleAfter time.Duration

	mu        sync.Mutex
	value     T
	err       error
	hasValue  bool
	fetchedAt time.Time
	now       func() time.Time
}

// New builds an always-enabled query.
func New[T any](key string, fetch func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{Key: key, Fetch: fetch}
}

func (q *Query[T]) staleAfter() time.Duration {
	if q.StaleAfter > 0 {
		return q.StaleAfter
	}
	return StaleAfter
}

func (q *Query[T]) clock() time.Time {
	if q.now != nil {
		return q.now()
	}
	return time.Now()
}

// SetClock replaces the time source. Tests only.
func (q *Query[T]) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *Query[T]) enabled() bool {
	return q.Enabled == nil || q.Enabled()
}

// Result returns the cached value when it is still fresh, otherwise
// fetches. Fetch failures keep any previous value: the error is stored and
// the stale value returned alongside it.
func (q *Query[T]) Result(ctx context.Context) (T, error) {
	q.mu.Lock()
	if q.hasValue && q.clock().Sub(q.fetchedAt) < q.staleAfter() {
		v, err := q.value, q.err
		q.mu.Unlock()
		return v, err
	}
	q.mu.Unlock()

	return q.Refresh(ctx)
}

// Refresh fetches unconditionally, bypassing the staleness window. A
// disabled query does not fetch and returns whatever it has.
func (q *Query[T]) Refresh(ctx context.Context) (T, error) {
	if !q.enabled() {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.value, q.err
	}

	v, err := q.Fetch(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
	if err == nil {
		q.value = v
		q.hasValue = true
		q.fetchedAt = q.clock()
		return q.value, nil
	}
	// Keep serving the previous value on failure.
	return q.value, err
}

// Value returns the cached value without fetching.
func (q *Query[T]) Value() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.value, q.hasValue
}

// Err returns the error of the most recent fetch, nil after a success.
func (q *Query[T]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Invalidate marks the cached value stale so the next Result fetches.
func (q *Query[T]) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fetchedAt = time.Time{}
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// refresher is the part of Query the Runner drives, free of the type
// parameter.
type refresher interface {
	refresh(ctx context.Context)
}

func (q *Query[T]) refresh(ctx context.Context) {
	q.Refresh(ctx)
}

// Runner periodically refetches its registered queries. Close cancels the
// tickers and waits for the loops to exit.
type Runner struct {
	interval time.Duration

	mu      sync.Mutex
	queries []refresher

	cancel context.CancelFunc
	wg     sync.WaitGroup
	ctx    context.Context
}

// NewRunner creates a runner with the given refetch interval; 0 means
// RefetchEvery.
func NewRunner(interval time.Duration) *Runner {
	if interval <= 0 {
		interval = RefetchEvery
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{interval: interval, ctx: ctx, cancel: cancel}
}

// Add registers a query for periodic refetch and starts its loop.
func Add[T any](r *Runner, q *Query[T]) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				q.refresh(r.ctx)
			}
		}
	}()
}

// Close stops all refetch loops and blocks until they exit.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}
