package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/travelhub/internal/config"
	"github.com/iliyamo/travelhub/internal/logger"
)

// dialTimeout bounds how long a publish can stall on an unreachable broker.
const dialTimeout = 3 * time.Second

// Publisher sends catalog events. Publish failures are reported to the
// caller, which is expected to log and carry on: a committed catalog write
// is never rolled back because the broker is down.
type Publisher interface {
	Publish(ctx context.Context, ev CatalogEvent) error
}

// NopPublisher drops every event. Used when events are disabled and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, CatalogEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to a durable topic
// exchange. The connection is dialed lazily and re-dialed after the broker
// closes it; each publish uses its own short-lived channel.
type AMQPPublisher struct {
	cfg config.QueueConfig
	log *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPPublisher(cfg config.QueueConfig, log *logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{cfg: cfg, log: log}
}

func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p.conn = conn
	return conn, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev CatalogEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	conn, err := p.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, p.cfg.Exchange); err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, p.cfg.Exchange, ev.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		MessageId:    ev.ID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.Debug("catalog event published", "type", ev.Type, "entity_id", ev.EntityID)
	return nil
}

// Close releases the underlying connection, if any.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
