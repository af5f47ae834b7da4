// Package rabbitmq implements the work channel port on top of RabbitMQ:
// a durable queue with persistent messages, prefetch-limited competing
// consumers, and manual acknowledgments driving redelivery.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tolaton/genqueue/internal/config"
	"github.com/tolaton/genqueue/internal/queue"
)

// WorkChannel is a RabbitMQ-backed work channel satisfying both the
// queue.Publisher and queue.Consumer interfaces.
type WorkChannel struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	prefetch  int
}

var (
	_ queue.Publisher = (*WorkChannel)(nil)
	_ queue.Consumer  = (*WorkChannel)(nil)
)

// Connect dials the broker, opens a channel, and declares the durable
// task queue so producer and worker can start in any order.
func Connect(cfg config.RabbitMQConfig, queueCfg config.QueueConfig) (*WorkChannel, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Durable queue: unacknowledged tasks survive a broker restart.
	_, err = channel.QueueDeclare(
		queueCfg.Name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueCfg.Name, err)
	}

	return &WorkChannel{
		conn:      conn,
		channel:   channel,
		queueName: queueCfg.Name,
		prefetch:  queueCfg.Prefetch,
	}, nil
}

// Publish enqueues a serialized task payload as a persistent message. The
// message id is set to the task id from the payload so deliveries can be
// correlated in the broker's tooling.
func (c *WorkChannel) Publish(ctx context.Context, body []byte) error {
	err := c.channel.PublishWithContext(ctx,
		"",          // default exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    peekTaskID(body),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", c.queueName, err)
	}
	return nil
}

// Consume opens a prefetch-limited delivery stream. Each message goes to
// exactly one of the competing consumers; unacknowledged messages are
// redelivered when a worker dies.
func (c *WorkChannel) Consume(ctx context.Context) (<-chan queue.Delivery, error) {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag, broker-generated
		false, // autoAck: acks are explicit, after the terminal status write
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", c.queueName, err)
	}

	out := make(chan queue.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- &amqpDelivery{msg: msg}:
				case <-ctx.Done():
					// Unacknowledged; the broker will redeliver.
					return
				}
			}
		}
	}()
	return out, nil
}

// Close shuts down the channel and connection.
func (c *WorkChannel) Close() error {
	if err := c.channel.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}

// peekTaskID extracts the task id from a payload without decoding the
// whole record. An empty id on a malformed payload is acceptable here;
// the worker rejects the payload properly on receipt.
func peekTaskID(body []byte) string {
	var envelope struct {
		TaskID string `json:"task_id"`
	}
	_ = json.Unmarshal(body, &envelope)
	return envelope.TaskID
}

// amqpDelivery adapts an amqp delivery to the queue.Delivery interface.
type amqpDelivery struct {
	msg amqp.Delivery
}

func (d *amqpDelivery) Body() []byte {
	return d.msg.Body
}

func (d *amqpDelivery) Ack() error {
	return d.msg.Ack(false)
}

func (d *amqpDelivery) Nack(requeue bool) error {
	return d.msg.Nack(false, requeue)
}
