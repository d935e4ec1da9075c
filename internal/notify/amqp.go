package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

// DefaultExchange is the topic exchange updates are published to.
const DefaultExchange = "assessment_updates"

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes updates to a RabbitMQ topic exchange with routing
// key "session.<id>".
type AMQPNotifier struct {
	exchange string
	conn     *amqp.Connection
	open     func() (publisher, error)

	mu sync.Mutex
	ch publisher
}

// NewAMQPNotifier dials url and declares the exchange.
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{
		exchange: exchange,
		conn:     conn,
		ch:       ch,
		open: func() (publisher, error) {
			return conn.Channel()
		},
	}, nil
}

// RoutingKey returns the routing key used for a session.
func RoutingKey(sessionID string) string {
	return "session." + sessionID
}

// Publish sends the update. A failed channel is dropped and reopened on the
// next call.
func (n *AMQPNotifier) Publish(ctx context.Context, update Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil {
		ch, err := n.open()
		if err != nil {
			return fmt.Errorf("open rabbitmq channel: %w", err)
		}
		n.ch = ch
	}
	err = n.ch.Publish(
		n.exchange,
		RoutingKey(update.SessionID),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   update.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		_ = n.ch.Close()
		n.ch = nil
		return fmt.Errorf("publish update: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
