package crawler

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/wordcrawl/internal/metrics"
)

// Task is a unit of work submitted to a Pool.
type Task func(ctx context.Context) error

// Pool is a fixed-size worker pool for crawl units.
//
// Design decision: the pool hands out worker slots rather than owning worker
// goroutines. A unit holds a slot only while it does its own work (Do) and
// releases it before forking and waiting for its children (InvokeAll). With
// owned workers, a parent blocked on its children would pin a worker and a
// pool of size 1 would deadlock on the first fan-out.
type Pool struct {
	size    int
	sem     *semaphore.Weighted
	metrics *metrics.Collector

	inFlight atomic.Int64
	peak     atomic.Int64
	tasks    atomic.Int64
}

// PoolStats describes a pool's configuration and activity.
type PoolStats struct {
	// Size is the number of worker slots.
	Size int

	// TasksRun is the number of Do calls that obtained a slot.
	TasksRun int64

	// PeakConcurrency is the highest number of slots held at once.
	PeakConcurrency int64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolMetrics reports slot usage to c.
func WithPoolMetrics(c *metrics.Collector) PoolOption {
	return func(p *Pool) {
		p.metrics = c
	}
}

// PoolSize returns the number of worker slots used for the configured
// parallelism: min(parallelism, runtime.NumCPU()), where a value of zero or
// less means runtime.NumCPU(). The result is never less than one.
func PoolSize(parallelism int) int {
	n := runtime.NumCPU()
	if parallelism > 0 && parallelism < n {
		n = parallelism
	}
	return max(n, 1)
}

// NewPool creates a pool sized by PoolSize(parallelism).
func NewPool(parallelism int, opts ...PoolOption) *Pool {
	size := PoolSize(parallelism)
	p := &Pool{
		size: size,
		sem:  semaphore.NewWeighted(int64(size)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of worker slots.
func (p *Pool) Size() int {
	return p.size
}

// Invoke runs a root task and returns once it and every task it forked have
// finished.
func (p *Pool) Invoke(ctx context.Context, task Task) error {
	return task(ctx)
}

// Do runs fn while holding one worker slot. It blocks until a slot is free
// and fails with ErrSchedulerUnavailable if ctx ends first.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrSchedulerUnavailable, err)
	}
	defer p.sem.Release(1)

	p.tasks.Add(1)
	p.metrics.WorkerAcquired()
	p.trackPeak(p.inFlight.Add(1))
	defer func() {
		p.inFlight.Add(-1)
		p.metrics.WorkerReleased()
	}()

	fn()
	return nil
}

// InvokeAll forks tasks and waits for all of them. The caller holds no
// slot while waiting. Every task runs to completion even if another fails;
// the first error is returned.
func (p *Pool) InvokeAll(ctx context.Context, tasks []Task) error {
	switch len(tasks) {
	case 0:
		return nil
	case 1:
		return tasks[0](ctx)
	}

	var g errgroup.Group
	for _, task := range tasks {
		g.Go(func() error {
			return task(ctx)
		})
	}
	return g.Wait()
}

// Stats returns a snapshot of the pool's activity.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Size:            p.size,
		TasksRun:        p.tasks.Load(),
		PeakConcurrency: p.peak.Load(),
	}
}

func (p *Pool) trackPeak(current int64) {
	for {
		peak := p.peak.Load()
		if current <= peak || p.peak.CompareAndSwap(peak, current) {
			return
		}
	}
}
