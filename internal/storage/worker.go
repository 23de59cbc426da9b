package storage

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// WorkerPool runs archive tasks off the caller's goroutine. Each worker owns
// its queue and a key always hashes to the same worker, so tasks sharing a
// key run in submission order. Submit never blocks: when the queue is full
// the task is dropped.
type WorkerPool struct {
	queues []chan func()
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool starts workers goroutines sharing a total buffer of roughly
// buffer tasks.
func NewWorkerPool(workers, buffer int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	perWorker := (buffer + workers - 1) / workers
	if perWorker < 1 {
		perWorker = 1
	}

	p := &WorkerPool{queues: make([]chan func(), workers)}
	for i := range p.queues {
		p.queues[i] = make(chan func(), perWorker)
		p.wg.Add(1)
		go p.worker(p.queues[i])
	}
	zap.L().Info("archive workers started", zap.Int("workers", workers), zap.Int("queue", perWorker))
	return p
}

// Submit queues task on the worker owning key and reports whether it was
// accepted.
func (p *WorkerPool) Submit(key string, task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	q := p.queues[xxhash.Sum64String(key)%uint64(len(p.queues))]
	select {
	case q <- task:
		return true
	default:
		zap.L().Warn("archive queue full, dropping task", zap.String("key", key))
		return false
	}
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for _, q := range p.queues {
			close(q)
		}
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *WorkerPool) worker(tasks <-chan func()) {
	defer p.wg.Done()
	for task := range tasks {
		p.run(task)
	}
}

func (p *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("archive worker panic", zap.Any("recover", r))
		}
	}()
	task()
}
