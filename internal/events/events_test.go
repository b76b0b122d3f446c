package events_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-service/internal/events"
	"collab-service/internal/mocks"
	"collab-service/internal/observability"
)

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := events.NewEmitter(publisher, "collab-service", "amqp", nil)
	ctx := observability.ContextWithRequestID(context.Background(), "req-42")

	payload := events.Unmatched{UserID: "a", MatchedUserID: "b"}
	publisher.On("Publish", ctx, events.CollaboratorUnmatched, mock.MatchedBy(func(e events.Envelope) bool {
		return e.SchemaVersion == 1 &&
			e.EventType == events.CollaboratorUnmatched &&
			e.Service == "collab-service" &&
			e.RequestID == "req-42" &&
			e.OccurredAt != "" &&
			e.Payload == payload
	})).Return(nil).Once()

	emitter.Emit(ctx, events.CollaboratorUnmatched, payload)

	publisher.AssertExpectations(t)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, events.MessageCreated, mock.Anything).Return(errors.New("broker down")).Once()

	emitter := events.NewEmitter(publisher, "collab-service", "nats", logger)
	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), events.MessageCreated, events.MessagePosted{})
	})

	assert.Contains(t, buf.String(), "event publish failed")
	assert.Contains(t, buf.String(), "broker down")
	publisher.AssertExpectations(t)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *events.Emitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), events.CollaboratorLiked, nil)
	})
}

func TestNoopPublisher(t *testing.T) {
	noop := events.Noop{Reason: "disabled"}
	assert.NoError(t, noop.Publish(context.Background(), events.CollaboratorLiked, events.Envelope{EventType: events.CollaboratorLiked}))
	assert.NoError(t, noop.Close())

	mode, reason := events.Mode(noop)
	assert.Equal(t, "noop", mode)
	assert.Equal(t, "disabled", reason)

	mode, _ = events.Mode(new(mocks.PublisherMock))
	assert.Equal(t, "unknown", mode)
}
