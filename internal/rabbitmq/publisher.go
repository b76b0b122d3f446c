package rabbitmq

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"collab-service/internal/events"
)

// NewPublisher builds a RabbitMQ publisher on a durable topic exchange, or a
// noop publisher when AMQP is disabled or unreachable.
func NewPublisher(amqpURL, exchange string, logger *slog.Logger) events.Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func(reason string) events.Publisher {
		logger.Warn("rabbitmq disabled, using noop", "reason", reason)
		return events.Noop{Reason: reason, Logger: logger}
	}

	if amqpURL == "" {
		return noop("empty amqp url")
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return noop(err.Error())
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return noop(err.Error())
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return noop(err.Error())
	}

	logger.Info("rabbitmq connected", "exchange", exchange)
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *slog.Logger
}

func (p *amqpPublisher) Driver() string {
	return "amqp"
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, publishing(body, event))
}

func publishing(body []byte, event any) amqp.Publishing {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if envelope, ok := event.(events.Envelope); ok {
		msg.Type = envelope.EventType
		msg.AppId = envelope.Service
		msg.CorrelationId = envelope.RequestID
	}
	return msg
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
