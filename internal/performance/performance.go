// Package performance provides the worker pool used for batch metric
// computation and runtime statistics.
package performance

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool manages a pool of workers for concurrent task execution.
type WorkerPool struct {
	workers    int
	taskQueue  chan func()
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	running    atomic.Bool
	tasksTotal atomic.Uint64
	tasksDone  atomic.Uint64
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0, it defaults to runtime.NumCPU().
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the worker pool.
func (p *WorkerPool) Start() {
	if p.running.Swap(true) {
		return
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			task()
			p.tasksDone.Add(1)
		}
	}
}

// Submit submits a task to the worker pool.
// Returns false if the pool is not running or the queue is full.
func (p *WorkerPool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running.Load() {
		return false
	}

	select {
	case p.taskQueue <- task:
		p.tasksTotal.Add(1)
		return true
	default:
		return false
	}
}

// Stop stops the worker pool and waits for all workers to finish.
// Queued tasks that have not started are dropped.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running.Swap(false) {
		p.mu.Unlock()
		return
	}
	p.cancel()
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats returns pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		Running:    p.running.Load(),
		TasksTotal: p.tasksTotal.Load(),
		TasksDone:  p.tasksDone.Load(),
		QueueLen:   len(p.taskQueue),
	}
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Workers    int    `json:"workers"`
	Running    bool   `json:"running"`
	TasksTotal uint64 `json:"tasksTotal"`
	TasksDone  uint64 `json:"tasksDone"`
	QueueLen   int    `json:"queueLen"`
}

// Map applies fn to every item on the pool and returns the results in input
// order. Items the pool cannot accept run on the calling goroutine. Items not
// yet started when ctx is cancelled are skipped and keep the zero value.
func Map[T, R any](ctx context.Context, p *WorkerPool, items []T, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))

	var wg sync.WaitGroup
	for i := range items {
		if ctx.Err() != nil {
			break
		}

		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[i] = fn(ctx, items[i])
		}

		if p == nil || !p.Submit(task) {
			task()
		}
	}
	wg.Wait()

	return results
}

// RuntimeStats returns a snapshot of process statistics for health reporting.
func RuntimeStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemStats{
		HeapAlloc:  m.HeapAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

// MemStats contains memory statistics.
type MemStats struct {
	HeapAlloc  uint64 `json:"heapAlloc"`  // bytes allocated on heap
	Sys        uint64 `json:"sys"`        // bytes obtained from system
	NumGC      uint32 `json:"numGC"`      // number of completed GC cycles
	Goroutines int    `json:"goroutines"` // number of goroutines
}
