package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"collab-service/internal/events"
)

// Publisher writes domain events into a JetStream stream under
// <prefix>.<routing key>.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
	logger *slog.Logger
}

// NewPublisher connects to NATS and makes sure the stream exists.
func NewPublisher(ctx context.Context, url, stream, prefix string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(url, nats.Name("collab-service"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := js.Stream(ctx, stream); err != nil {
		logger.Info("stream not found, creating", "stream", stream)
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        stream,
			Description: "Collaboration and messaging domain events",
			Subjects:    []string{prefix + ".>"},
			MaxAge:      7 * 24 * time.Hour,
			Storage:     jetstream.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream '%s': %w", stream, err)
		}
	}

	logger.Info("nats connected", "stream", stream, "subject_prefix", prefix)
	return &Publisher{nc: nc, js: js, prefix: prefix, logger: logger}, nil
}

func (p *Publisher) Driver() string {
	return "nats"
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(p.prefix, routingKey)
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if envelope, ok := event.(events.Envelope); ok && envelope.RequestID != "" {
		msg.Header.Set("X-Request-Id", envelope.RequestID)
	}

	if _, err := p.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to subject '%s': %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}

// Subject maps a routing key onto the stream's subject space.
func Subject(prefix, routingKey string) string {
	return fmt.Sprintf("%s.%s", prefix, routingKey)
}
