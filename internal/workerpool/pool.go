// Package workerpool runs outbox deliveries on a bounded set of goroutines.
//
// Submit never blocks: when every worker is busy and the buffer is full it
// returns ErrPoolFull and the caller leaves the job for the next sweep.
package workerpool

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool is a bounded goroutine pool.
type Pool struct {
	mu      sync.RWMutex
	closed  bool
	tasks   chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closeCh chan struct{}
}

// New starts size workers with a task buffer of twice that.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		tasks:   make(chan func(), size*2),
		closeCh: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until task is queued or the pool shuts down.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-p.closeCh:
		return ErrPoolClosed
	case p.tasks <- task:
		return nil
	}
}

// Shutdown stops intake, drains queued tasks and waits for the workers.
// It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.closeCh)
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

func safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("workerpool: task panicked", zap.Any("panic", r))
		}
	}()
	task()
}
