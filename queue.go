package importer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultPause is the time the queue yields after each task.
const DefaultPause = 50 * time.Millisecond

// Queue runs per-document tasks with bounded concurrency.
//
// Imports run with a concurrency of 1: tasks then start strictly in order and
// one at a time, which keeps "file i of n" progress meaningful and never puts
// concurrent load on rate-limited OCR providers.
type Queue struct {
	sem   *semaphore.Weighted
	pause time.Duration
}

// NewQueue returns a queue running at most concurrency tasks at once and
// yielding pause after each task. A concurrency below 1 is treated as 1.
func NewQueue(concurrency int64, pause time.Duration) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Queue{sem: semaphore.NewWeighted(concurrency), pause: pause}
}

// Sequential returns a queue of concurrency 1 with the default pause.
func Sequential() *Queue { return NewQueue(1, DefaultPause) }

// Run runs task for i in [0, n) and returns the error of each task, indexed
// like the tasks. Once ctx is done no further task is started and the
// remaining slots hold ctx.Err().
func (q *Queue) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		if err := q.sem.Acquire(ctx, 1); err != nil {
			for j := i; j < n; j++ {
				errs[j] = err
			}
			break
		}
		// Acquire can win the race against a cancellation that already happened.
		if err := ctx.Err(); err != nil {
			q.sem.Release(1)
			for j := i; j < n; j++ {
				errs[j] = err
			}
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer q.sem.Release(1)
			errs[i] = task(ctx, i)
			q.yield(ctx)
		}()
	}
	wg.Wait()
	return errs
}

// yield lets the caller's display catch up before the next task starts.
func (q *Queue) yield(ctx context.Context) {
	if q.pause <= 0 {
		return
	}
	t := time.NewTimer(q.pause)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
