// Package events publishes certificate lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/config"
	"github.com/sells-group/rumoo/internal/model"
)

// TypeCertificateReady is the AMQP message type of a finished certificate.
const TypeCertificateReady = "certificate.ready"

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events to a durable topic exchange.
type Publisher struct {
	conn       *amqp.Connection
	ch         Channel
	exchange   string
	routingKey string
	now        func() time.Time
}

// Dial connects to cfg.URL and declares the exchange. It returns nil without
// error when no URL is configured.
func Dial(cfg config.RabbitMQConfig) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "events: dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, eris.Wrap(err, "events: open channel")
	}
	p, err := NewPublisher(ch, cfg.Exchange, cfg.RoutingKey)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares exchange on ch and returns a publisher bound to it.
func NewPublisher(ch Channel, exchange, routingKey string) (*Publisher, error) {
	if exchange == "" {
		return nil, eris.New("events: exchange is required")
	}
	if routingKey == "" {
		routingKey = TypeCertificateReady
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, eris.Wrapf(err, "events: declare exchange %s", exchange)
	}
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey, now: time.Now}, nil
}

// PublishCertificateReady sends ev as a persistent JSON message.
func (p *Publisher) PublishCertificateReady(ctx context.Context, ev model.CertificateReady) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "events: marshal certificate ready")
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now().UTC(),
		Type:         TypeCertificateReady,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return eris.Wrap(err, "events: publish certificate ready")
	}

	zap.L().Debug("events: certificate ready published",
		zap.String("certificate_id", ev.CertificateID),
		zap.String("message_id", msg.MessageId),
	)
	return nil
}

// Close closes the channel and, when dialed, the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cErr := p.conn.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}
	return err
}
