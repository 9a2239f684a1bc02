// Package events publishes transfer lifecycle events to a RabbitMQ topic
// exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/remitflow/remitflow-backend/internal/domain"
)

// DefaultExchange receives every transfer event
const DefaultExchange = "transfer_events"

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	domain.EventPublisher
	Close()
}

// amqpChannel is the subset of *amqp091.Channel used for publishing
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// EventProducer holds the RabbitMQ connection and channel for publishing messages.
type EventProducer struct {
	exchange string

	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  amqpChannel
	reopen   func() (amqpChannel, error)
	declared bool
}

// EventProducerFallback is a minimal no-op publisher used when RabbitMQ is unavailable at startup.
type EventProducerFallback struct{}

func (p *EventProducerFallback) PublishTransferEvent(ctx context.Context, event domain.TransferEvent) error {
	log.Printf("level=warn component=rabbitmq_producer mode=fallback msg=\"publish skipped\" event_type=%s transfer_id=%s", event.EventType, event.TransferID)
	return nil
}

func (p *EventProducerFallback) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials RabbitMQ and returns a producer publishing to the
// given topic exchange.
func NewEventProducer(amqpURL, exchange string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Use a bounded dial timeout so startup does not hang indefinitely
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	p := newEventProducer(ch, func() (amqpChannel, error) { return conn.Channel() }, exchange)
	p.conn = conn
	return p, nil
}

func newEventProducer(ch amqpChannel, reopen func() (amqpChannel, error), exchange string) *EventProducer {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &EventProducer{exchange: exchange, channel: ch, reopen: reopen}
}

// PublishTransferEvent publishes the event with its type as routing key
func (p *EventProducer) PublishTransferEvent(ctx context.Context, event domain.TransferEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("level=error component=rabbitmq_producer msg=\"json marshal failed\" event_type=%s err=%v", event.EventType, err)
		return err
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.EventID,
		Timestamp:    event.OccurredAt,
		Type:         event.EventType,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publishLocked(ctx, event.EventType, msg)
	if err == nil {
		return nil
	}
	log.Printf("level=warn component=rabbitmq_producer msg=\"publish failed; reopening channel\" exchange=%s routing_key=%s err=%v", p.exchange, event.EventType, err)

	// One-shot retry on a fresh channel
	if p.reopen == nil {
		return err
	}
	ch, chErr := p.reopen()
	if chErr != nil {
		return chErr
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	p.channel = ch
	p.declared = false
	return p.publishLocked(ctx, event.EventType, msg)
}

// publishLocked must be called with mu held
func (p *EventProducer) publishLocked(ctx context.Context, routingKey string, msg amqp091.Publishing) error {
	if !p.declared {
		// Ensure the exchange exists (durable topic)
		if err := p.channel.ExchangeDeclare(
			p.exchange, // name
			"topic",    // type
			true,       // durable
			false,      // autoDelete
			false,      // internal
			false,      // noWait
			nil,        // args
		); err != nil {
			return err
		}
		p.declared = true
	}
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Connect returns a RabbitMQ producer, or the no-op fallback when the
// broker is not configured or unreachable.
func Connect(amqpURL, exchange string) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		log.Printf("level=info component=rabbitmq_producer msg=\"no broker configured; events disabled\"")
		return &EventProducerFallback{}
	}
	producer, err := NewEventProducer(amqpURL, exchange)
	if err != nil {
		log.Printf("level=warn component=rabbitmq_producer msg=\"broker unavailable; using fallback publisher\" err=%v", err)
		return &EventProducerFallback{}
	}
	return producer
}
