package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type BodyHandler interface {
	HandleBody(ctx context.Context, body []byte) error
}

// AMQPConsumer drains a durable RabbitMQ queue, reconnecting with backoff
// when the broker goes away. Messages that fail are dropped, not requeued.
type AMQPConsumer struct {
	url      string
	queue    string
	prefetch int
	logger   zerolog.Logger
	handler  BodyHandler
}

func NewAMQPConsumer(url string, queue string, logger zerolog.Logger, handler BodyHandler) *AMQPConsumer {
	return &AMQPConsumer{
		url:      url,
		queue:    queue,
		prefetch: 50,
		logger:   logger,
		handler:  handler,
	}
}

// Start returns only when ctx is cancelled.
func (c *AMQPConsumer) Start(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("rabbitmq dial failed")
			sleep(ctx, backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Msg("rabbitmq consume loop ended, reconnecting")
		sleep(ctx, 2*time.Second)
	}
}

func (c *AMQPConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.Warn().Err(err).Msg("rabbitmq qos failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handler.HandleBody(ctx, d.Body); err != nil {
				c.logger.Error().Err(err).Str("message_id", d.MessageId).Msg("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
