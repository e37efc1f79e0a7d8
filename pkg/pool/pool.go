// Package pool provides the worker pool the parser fans function bodies out
// to. Callers submit closures and may help drain the queue themselves with
// WorkOneJob.
package pool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool runs submitted jobs on some set of goroutines.
type Pool interface {
	Submit(job func())
	// WorkOneJob runs one queued job on the calling goroutine. It returns
	// false when the queue was empty.
	WorkOneJob() bool
}

// Workers is a Pool backed by a fixed number of goroutines. A Workers with
// zero goroutines only makes progress through WorkOneJob.
type Workers struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool

	group errgroup.Group
}

// New starts n worker goroutines.
func New(n int) *Workers {
	w := &Workers{}
	w.cond = sync.NewCond(&w.mu)
	for range n {
		w.group.Go(func() error {
			for {
				job, ok := w.wait()
				if !ok {
					return nil
				}
				job()
			}
		})
	}
	return w
}

// Submit queues a job.
func (w *Workers) Submit(job func()) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		panic("pool: submit after close")
	}
	w.queue = append(w.queue, job)
	w.mu.Unlock()
	w.cond.Signal()
}

// WorkOneJob runs the oldest queued job, if any.
func (w *Workers) WorkOneJob() bool {
	w.mu.Lock()
	job, ok := w.pop()
	w.mu.Unlock()
	if ok {
		job()
	}
	return ok
}

// Pending returns the number of queued jobs.
func (w *Workers) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Close lets the workers finish the queue and waits for them to exit.
func (w *Workers) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cond.Broadcast()
	return w.group.Wait()
}

func (w *Workers) wait() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && !w.closed {
		w.cond.Wait()
	}
	return w.pop()
}

func (w *Workers) pop() (func(), bool) {
	if len(w.queue) == 0 {
		return nil, false
	}
	job := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	return job, true
}

// ForEachBatch splits [0, n) into contiguous batches of at most size items
// and calls task once per batch. With a pool the batches are submitted as
// jobs and the caller keeps working jobs off the queue, yielding when it is
// empty, until every batch has finished. Without one the batches run in
// order on the calling goroutine.
func ForEachBatch(p Pool, n, size int, task func(start, end int)) {
	if size <= 0 {
		panic("pool: batch size must be positive")
	}
	if p == nil {
		for start := 0; start < n; start += size {
			task(start, min(start+size, n))
		}
		return
	}

	var remaining atomic.Int64
	remaining.Store(int64((n + size - 1) / size))
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		p.Submit(func() {
			defer remaining.Add(-1)
			task(start, end)
		})
	}
	for remaining.Load() > 0 {
		if !p.WorkOneJob() {
			runtime.Gosched()
		}
	}
}
