package outbox

import (
	"context"
	"sync"
)

// MemoryDriver is an in-process, channel-backed driver. It is not durable;
// the sweeper re-queues rows lost on restart.
type MemoryDriver struct {
	ch     chan []byte
	once   sync.Once
	closed chan struct{}
}

func NewMemoryDriver(size int) *MemoryDriver {
	if size <= 0 {
		size = 1000
	}
	return &MemoryDriver{ch: make(chan []byte, size), closed: make(chan struct{})}
}

// Push never blocks; a full buffer returns ErrQueueFull.
func (d *MemoryDriver) Push(ctx context.Context, payload []byte) error {
	select {
	case <-d.closed:
		return ErrDriverClosed
	default:
	}

	select {
	case d.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.closed:
		return nil, ErrDriverClosed
	case payload := <-d.ch:
		return payload, nil
	}
}

func (d *MemoryDriver) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}
