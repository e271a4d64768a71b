package rabbitmq

import (
	"context"
	"fmt"

	"admin-dashboard/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const QueueName = "dashboard_thumbnail_queue"

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewClient creates a new RabbitMQ client and declares the queue
func NewClient(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logger.Logger.Info().Str("queue", QueueName).Msg("rabbitmq client initialized")

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

// Publish sends a persistent JSON message to the queue
func (c *Client) Publish(ctx context.Context, body []byte) error {
	err := c.channel.PublishWithContext(ctx,
		"",        // exchange
		QueueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logger.Logger.Debug().Str("queue", QueueName).Msg("published message")
	return nil
}

// Consume starts a manual-ack consumer delivering at most prefetch
// unacknowledged messages at a time.
func (c *Client) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := c.channel.Consume(
		QueueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	return msgs, nil
}

// Close closes the channel and connection
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("error closing channel")
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("error closing connection")
		}
	}
	return nil
}
