package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"collab-service/internal/config"
	"collab-service/internal/mocks"
	"collab-service/internal/observability"
)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.collab-service", "collab-service", "test", nil)
	userID := "11111111-1111-1111-1111-111111111111"
	ctx := observability.ContextWithRequestID(context.Background(), "req-7")

	publisher.On("Publish", ctx, "audit.collab-service", mock.MatchedBy(func(e AuditEnvelope) bool {
		return e.EventType == "audit_log" &&
			e.Environment == "test" &&
			e.RequestID == "req-7" &&
			*e.UserID == userID &&
			e.Payload.Level == "INFO" &&
			e.Payload.Text == "collaborator matched"
	})).Return(nil).Once()

	emitter.Emit(ctx, "INFO", "collaborator matched", &userID)

	publisher.AssertExpectations(t)
}

func TestAuditEmitterIgnoresPublishFailure(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("down")).Once()

	emitter := NewAuditEmitter(publisher, "audit", "collab-service", "test", nil)
	assert.NotPanics(t, func() { emitter.Emit(context.Background(), "WARN", "x", nil) })
	publisher.AssertExpectations(t)
}

func TestInitTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), configForTest(), "test")
	assert.NoError(t, err)
	_, span := Tracer().Start(context.Background(), "audit.emit")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func configForTest() config.TelemetryConfig {
	return config.TelemetryConfig{ServiceName: "collab-service", SampleRatio: 1}
}
