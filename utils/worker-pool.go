package utils

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type job[T any] struct {
	item  T
	index int
}

type result[R any] struct {
	value R
	index int
}

// WorkerPool manages a pool of goroutines applying one work function to
// every submitted job.
type WorkerPool[T, R any] struct {
	NumWorkers int
	jobs       chan job[T]
	results    chan result[R]
	wg         sync.WaitGroup
	started    bool
	mu         sync.Mutex
}

// NewWorkerPool creates a pool with numWorkers goroutines and buffers large
// enough for size jobs.
func NewWorkerPool[T, R any](numWorkers, size int) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool[T, R]{
		NumWorkers: numWorkers,
		jobs:       make(chan job[T], size),
		results:    make(chan result[R], size),
	}
}

// StartWorkers starts the worker goroutines. Calling it twice is a no-op.
func (wp *WorkerPool[T, R]) StartWorkers(workFunc func(int, T) R) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true
	wp.wg.Add(wp.NumWorkers)

	for i := 0; i < wp.NumWorkers; i++ {
		go wp.worker(workFunc)
	}
}

func (wp *WorkerPool[T, R]) worker(workFunc func(int, T) R) {
	defer wp.wg.Done()

	for j := range wp.jobs {
		wp.results <- result[R]{value: workFunc(j.index, j.item), index: j.index}
	}
}

// ProgressTracker counts processed items and reports them through OnProgress.
type ProgressTracker struct {
	Total      int64
	Processed  int64
	OnProgress func(processed, total int64)
}

// Increment increments the processed count atomically.
func (pt *ProgressTracker) Increment() {
	processed := atomic.AddInt64(&pt.Processed, 1)
	if pt.OnProgress != nil {
		pt.OnProgress(processed, pt.Total)
	}
}

// ParallelProcessor runs batches of independent items across a worker pool.
type ParallelProcessor struct {
	NumWorkers int
	OnProgress func(processed, total int64)
}

// NewParallelProcessor creates a new parallel processor. A non-positive
// worker count means one worker per CPU.
func NewParallelProcessor(numWorkers int) *ParallelProcessor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &ParallelProcessor{NumWorkers: numWorkers}
}

// ProcessBatch applies workFunc to every item and returns the results in
// input order.
func ProcessBatch[T, R any](pp *ParallelProcessor, items []T, workFunc func(int, T) R) []R {
	if len(items) == 0 {
		return []R{}
	}

	tracker := &ProgressTracker{Total: int64(len(items)), OnProgress: pp.OnProgress}
	wp := NewWorkerPool[T, R](pp.NumWorkers, len(items))
	wp.StartWorkers(func(i int, item T) R {
		r := workFunc(i, item)
		tracker.Increment()
		return r
	})

	for i, item := range items {
		wp.jobs <- job[T]{item: item, index: i}
	}
	close(wp.jobs)

	results := make([]R, len(items))
	for range items {
		r := <-wp.results
		results[r.index] = r.value
	}

	wp.wg.Wait()
	close(wp.results)
	return results
}
