package amqp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"corpdash/internal/log"
)

// ErrReject marks a message that can never be handled. Handlers wrap it so
// the delivery is dropped instead of requeued.
var ErrReject = errors.New("reject message")

// Handler processes one upload event.
type Handler func(context.Context, *UploadProcessedMessage) error

// Consumer reads upload events from a durable queue bound to the exchange.
type Consumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	logger    *log.Logger
}

// NewConsumer dials url, declares the exchange and the queue and binds them
// with routingKey.
func NewConsumer(url, exchangeName, queueName, routingKey string, logger *log.Logger) (*Consumer, error) {
	if logger == nil {
		logger = log.Discard()
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Consumer{conn: conn, channel: ch, queueName: queueName, logger: logger.WithComponent(log.ComponentAMQP)}
	if err := c.setup(exchangeName, routingKey); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) setup(exchangeName, routingKey string) error {
	err := c.channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := c.channel.QueueBind(c.queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	// One unacknowledged message at a time keeps audit rows in publish order.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Consume delivers messages to handler until ctx ends or the channel closes.
// Messages are acknowledged manually.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming upload events", "queue", c.queueName)
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			ack, requeue := c.settle(ctx, d.Body, handler)
			if ack {
				_ = d.Ack(false)
			} else {
				_ = d.Nack(false, requeue)
			}
		}
	}
}

// settle runs handler on body and decides the delivery's fate: malformed
// and rejected messages are dropped, other failures requeued.
func (c *Consumer) settle(ctx context.Context, body []byte, handler Handler) (ack, requeue bool) {
	msg, err := UploadProcessedMessageFromJSON(body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err.Error())
		return false, false
	}
	if err := handler(ctx, msg); err != nil {
		requeue := !errors.Is(err, ErrReject)
		c.logger.ErrorContext(ctx, "Failed to handle message",
			log.FieldError, err.Error(),
			log.FieldSessionID, msg.SessionID,
			log.FieldFilename, msg.Filename,
			"requeue", requeue)
		return false, requeue
	}
	return true, false
}

// Close shuts the channel and connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
