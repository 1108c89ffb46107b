// Package outbox delivers notifications recorded in the database. Rows are
// the source of truth; the queue driver only carries row ids to workers, and
// the sweeper re-queues anything a driver lost.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrQueueFull    = errors.New("outbox: queue is full")
	ErrDriverClosed = errors.New("outbox: driver is closed")
)

// Driver is the transport between Enqueue and the workers.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload arrives. It may return nil, nil when a
	// poll times out with nothing ready.
	Pop(ctx context.Context) ([]byte, error)
	Close() error
}

// DriverConfig selects and configures a driver.
type DriverConfig struct {
	Name     string
	RedisURL string
	AMQPURL  string
	Queue    string
}

// NewDriver builds the driver named by cfg.Name: memory, redis or amqp.
func NewDriver(ctx context.Context, cfg DriverConfig) (Driver, error) {
	switch strings.ToLower(cfg.Name) {
	case "", "memory":
		return NewMemoryDriver(1000), nil
	case "redis":
		return NewRedisDriver(ctx, cfg.RedisURL, cfg.Queue)
	case "amqp", "rabbitmq":
		return NewAMQPDriver(cfg.AMQPURL, cfg.Queue)
	default:
		return nil, fmt.Errorf("outbox: unknown queue driver %q", cfg.Name)
	}
}
