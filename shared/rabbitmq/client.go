// Package rabbitmq wraps the AMQP connection the change event consumer
// reads from.
package rabbitmq

import (
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection and topology configuration.
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	VHost         string
	ExchangeName  string
	ExchangeType  string
	QueueName     string
	RoutingKey    string
	PrefetchCount int
	RetryAttempts int
	RetryInterval time.Duration
	Heartbeat     time.Duration
}

// Client owns one connection and channel, declared durable on both the
// exchange and queue side so change events survive broker restarts.
type Client struct {
	cfg     Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewClient dials RabbitMQ with bounded retries and declares the
// exchange, queue and binding.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	client := &Client{cfg: cfg, logger: logger}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.cfg.User, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.VHost)

	attempts := c.cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.conn, err = amqp.DialConfig(dsn, amqp.Config{Heartbeat: c.cfg.Heartbeat})
		if err == nil {
			break
		}

		c.logger.Warn("RabbitMQ connection failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
		if attempt < attempts {
			time.Sleep(c.cfg.RetryInterval)
		}
	}
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.declare(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	c.logger.Info("RabbitMQ client ready",
		slog.String("exchange", c.cfg.ExchangeName),
		slog.String("queue", c.cfg.QueueName),
	)

	return nil
}

func (c *Client) declare() error {
	err := c.channel.ExchangeDeclare(
		c.cfg.ExchangeName,
		c.cfg.ExchangeType,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.cfg.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(c.cfg.QueueName, c.cfg.RoutingKey, c.cfg.ExchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Consume starts delivering change events. Prefetch keeps one handler's
// worth of events in flight; acks are manual.
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	prefetch := c.cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.cfg.QueueName,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	return deliveries, nil
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("failed to close RabbitMQ channel", slog.Any("error", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("close RabbitMQ connection: %w", err)
		}
	}
	return nil
}

// IsConnected reports whether the underlying connection is alive.
func (c *Client) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}
