package outbox

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPDriver publishes payloads to a durable RabbitMQ queue and consumes
// them with manual acks.
type AMQPDriver struct {
	conn       *amqp.Connection
	pub        *amqp.Channel
	pubMu      sync.Mutex
	sub        *amqp.Channel
	deliveries <-chan amqp.Delivery
	queue      string
}

func NewAMQPDriver(url, queue string) (*AMQPDriver, error) {
	if queue == "" {
		queue = "storefront.notifications"
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("outbox/amqp: dial: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("outbox/amqp: open channel: %w", err)
	}
	if _, err := pub.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("outbox/amqp: declare queue: %w", err)
	}

	sub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("outbox/amqp: open channel: %w", err)
	}
	if err := sub.Qos(16, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("outbox/amqp: qos: %w", err)
	}
	deliveries, err := sub.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("outbox/amqp: consume: %w", err)
	}

	return &AMQPDriver{conn: conn, pub: pub, sub: sub, deliveries: deliveries, queue: queue}, nil
}

func (d *AMQPDriver) Push(ctx context.Context, payload []byte) error {
	d.pubMu.Lock()
	defer d.pubMu.Unlock()

	err := d.pub.PublishWithContext(ctx, "", d.queue, false, false, amqp.Publishing{
		ContentType:  "text/plain",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("outbox/amqp: publish: %w", err)
	}
	return nil
}

// Pop acks on handoff. A delivery lost after that is recovered by the
// sweeper from the notification row.
func (d *AMQPDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-d.deliveries:
		if !ok {
			return nil, ErrDriverClosed
		}
		if err := msg.Ack(false); err != nil {
			return nil, fmt.Errorf("outbox/amqp: ack: %w", err)
		}
		return msg.Body, nil
	}
}

func (d *AMQPDriver) Close() error {
	_ = d.sub.Close()
	_ = d.pub.Close()
	return d.conn.Close()
}
