package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Tiliavir/penguin-meds/internal/ledger"
	"github.com/Tiliavir/penguin-meds/internal/logging"
)

// DefaultExchange and DefaultRoutingKey apply when the config leaves them blank.
const (
	DefaultExchange   = "pmeds"
	DefaultRoutingKey = "pmeds.entries"
)

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends change events to a topic exchange. Routing keys are
// <prefix>.<category>.<op>.
type Publisher struct {
	conn     *amqp091.Connection
	ch       channel
	exchange string
	prefix   string
	log      *logging.Logger
	now      func() time.Time
}

// Dial connects to url and declares the exchange.
func Dial(url, exchange, routingKey string, log *logging.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newPublisher(ch, exchange, routingKey, log)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string, log *logging.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	if log == nil {
		log = logging.Discard()
	}
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		prefix:   routingKey,
		log:      log.WithComponent(logging.ComponentEvents),
		now:      time.Now,
	}, nil
}

// RoutingKey returns the key an event is published under.
func (p *Publisher) RoutingKey(e Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, e.Category, e.Op)
}

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := p.RoutingKey(e)
	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.At,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	p.log.DebugContext(ctx, "event published",
		logging.FieldKey, key,
		logging.FieldEntryID, e.EntryID)
	return nil
}

// Forward publishes every store change. Publication is best effort: a
// failure is logged and never affects the mutation.
func (p *Publisher) Forward(ctx context.Context, s interface{ Subscribe(func(ledger.Change)) }) {
	s.Subscribe(func(ch ledger.Change) {
		if err := p.Publish(ctx, FromChange(ch, p.now())); err != nil {
			p.log.Warn("event not published", logging.FieldCategory, ch.Category, logging.FieldError, err)
		}
	})
}

// Tail binds a temporary queue to every event under the routing prefix and
// calls handle for each until ctx is done.
func (p *Publisher) Tail(ctx context.Context, handle func(Event) error) error {
	q, err := p.ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := p.ch.QueueBind(q.Name, p.prefix+".#", p.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := p.ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			ev, err := EventFromJSON(d.Body)
			if err != nil {
				p.log.Failure(ctx, "failed to decode event", err)
				_ = d.Nack(false, false)
				continue
			}
			if err := handle(ev); err != nil {
				_ = d.Nack(false, false)
				return err
			}
			_ = d.Ack(false)
		}
	}
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
