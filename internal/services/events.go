package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/streadway/amqp"
)

// Routing keys
const (
	EventProfileSubmitted = "profile.submitted"
	EventProfileVerified  = "profile.verified"
	EventAccountIssued    = "account.issued"
	EventSurveyResponded  = "survey.responded"
)

type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, data interface{}) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

// AMQPPublisher publishes JSON events to a durable topic exchange.
type AMQPPublisher struct {
	exchange string
	conn     *amqp.Connection
	ch       *amqp.Channel
	mu       sync.Mutex
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{exchange: exchange, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(Event{Type: routingKey, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	return nil
}

func (p *AMQPPublisher) Close() error {
	var errs []error

	if err := p.ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing RabbitMQ channel: %w", err))
	}

	if err := p.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing RabbitMQ connection: %w", err))
	}

	return errors.Join(errs...)
}

// NewPublisher returns an AMQPPublisher when an amqp url is configured, otherwise a NoopPublisher.
func NewPublisher(settings config.EventSettings) (EventPublisher, error) {
	if settings.AMQPURL == "" {
		return NoopPublisher{}, nil
	}

	return NewAMQPPublisher(settings.AMQPURL, settings.Exchange)
}

var (
	publisherMu      sync.RWMutex
	currentPublisher EventPublisher = NoopPublisher{}
)

func SetPublisher(p EventPublisher) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	currentPublisher = p
}

// PublishEvent sends an event through the current publisher, logging failures.
func PublishEvent(ctx context.Context, routingKey string, data interface{}) {
	publisherMu.RLock()
	p := currentPublisher
	publisherMu.RUnlock()

	if err := p.Publish(ctx, routingKey, data); err != nil {
		logger.LogError("Failed to publish event "+routingKey, err)
	}
}

// ClosePublisher closes the current publisher and resets it to a no-op.
func ClosePublisher() error {
	publisherMu.Lock()
	defer publisherMu.Unlock()

	err := currentPublisher.Close()
	currentPublisher = NoopPublisher{}
	return err
}
