// Package rabbitmq is a publish-only StatusEvent fan-out, supplemental
// to C10's durable append-only log: every appended event is additionally
// published to an exchange so an out-of-process analytics or
// notification consumer can react without polling status_events. Nothing
// in this module consumes its own queue — the durable source of truth
// stays the status_events table, never the broker.
//
// Grounded on the teacher's producer shape
// (components/consumer/internal/adapters/rabbitmq/producer.rabbitmq.go),
// using the maintained rabbitmq/amqp091-go fork in place of the
// teacher's retrieved streadway/amqp import (archived upstream).
package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// Publisher is the port command.UseCase depends on for status-event
// fan-out. A publish failure is always logged and swallowed by the
// caller — the audit log (C10) already committed in the same database
// transaction, and a broker hiccup must never roll back a state change.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Connection owns one AMQP connection/channel pair, reconnecting lazily
// on the next Publish call if the channel was closed.
type Connection struct {
	URL      string
	Exchange string
	Logger   mlog.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ Publisher = (*Connection)(nil)

func (c *Connection) logger() mlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return mlog.NoneLogger{}
}

// connect dials the broker and declares the topic exchange idempotently.
func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()

		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(c.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()

		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	c.conn = conn
	c.ch = ch

	return nil
}

// Publish sends body to c.Exchange under routingKey, lazily (re)dialing
// when no channel is open.
func (c *Connection) Publish(ctx context.Context, routingKey string, body []byte) error {
	if c.ch == nil {
		if err := c.connect(); err != nil {
			c.logger().Warnf("rabbitmq: publish skipped, connect failed: %v", err)

			return err
		}
	}

	err := c.ch.PublishWithContext(ctx, c.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		c.logger().Warnf("rabbitmq: publish to %s failed: %v", routingKey, err)

		// The channel may be dead; drop it so the next call redials.
		c.ch = nil

		return err
	}

	return nil
}

// Close tears down the channel and connection.
func (c *Connection) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
