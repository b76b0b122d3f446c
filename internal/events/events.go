package events

import (
	"context"
	"log/slog"
	"time"

	"collab-service/internal/models"
	"collab-service/internal/observability"
)

// Routing keys of the domain events published after commit.
const (
	CollaboratorLiked     = "collaborators.liked"
	CollaboratorMatched   = "collaborators.matched"
	CollaboratorUnmatched = "collaborators.unmatched"
	MessageCreated        = "messages.created"
	ConversationCreated   = "conversations.created"
)

// Publisher delivers an event to a broker under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Envelope wraps every domain event on the wire.
type Envelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	RequestID     string `json:"request_id,omitempty"`
	Payload       any    `json:"payload"`
}

// LogAttrs lets noop publishers describe what they dropped.
func (e Envelope) LogAttrs() []any {
	return []any{"event_type", e.EventType, "request_id", e.RequestID}
}

type Liked struct {
	Edge models.MatchEdge `json:"edge"`
}

type Matched struct {
	UserIDs        []string `json:"user_ids"`
	ConversationID string   `json:"conversation_id"`
	Reused         bool     `json:"reused"`
}

type Unmatched struct {
	UserID        string `json:"user_id"`
	MatchedUserID string `json:"matched_user_id"`
}

type MessagePosted struct {
	Message      models.Message `json:"message"`
	RecipientIDs []string       `json:"recipient_ids"`
}

type ConversationStarted struct {
	Conversation   models.Conversation `json:"conversation"`
	ParticipantIDs []string            `json:"participant_ids"`
}

// Emitter publishes enveloped events and never fails the caller: publish
// errors are logged and counted.
type Emitter struct {
	publisher Publisher
	service   string
	driver    string
	logger    *slog.Logger
	now       func() time.Time
}

func NewEmitter(publisher Publisher, service, driver string, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		publisher: publisher,
		service:   service,
		driver:    driver,
		logger:    logger,
		now:       time.Now,
	}
}

func (e *Emitter) Emit(ctx context.Context, routingKey string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     routingKey,
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		RequestID:     observability.RequestIDFromContext(ctx),
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, routingKey, envelope); err != nil {
		observability.IncEventPublishError(e.driver)
		e.logger.Error("event publish failed", "routing_key", routingKey, "driver", e.driver, "error", err)
	}
}

// Noop drops events. It stands in when no broker is configured or reachable.
type Noop struct {
	Reason string
	Logger *slog.Logger
}

type describer interface {
	LogAttrs() []any
}

func (n Noop) Publish(ctx context.Context, routingKey string, event any) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"routing_key", routingKey}
	if d, ok := event.(describer); ok {
		attrs = append(attrs, d.LogAttrs()...)
	}
	logger.Debug("noop publish", attrs...)
	return nil
}

func (Noop) Close() error {
	return nil
}

// Mode reports the publisher mode for logging.
func Mode(p Publisher) (mode string, reason string) {
	switch publisher := p.(type) {
	case Noop:
		return "noop", publisher.Reason
	case *Noop:
		return "noop", publisher.Reason
	case interface{ Driver() string }:
		return publisher.Driver(), ""
	default:
		return "unknown", ""
	}
}
