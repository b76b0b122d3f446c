package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"collab-service/internal/models"
)

type CollaboratorServiceMock struct {
	mock.Mock
}

func (m *CollaboratorServiceMock) Like(ctx context.Context, userID, targetID string) (models.LikeOutcome, error) {
	args := m.Called(ctx, userID, targetID)
	var out models.LikeOutcome
	if val := args.Get(0); val != nil {
		out = val.(models.LikeOutcome)
	}
	return out, args.Error(1)
}

func (m *CollaboratorServiceMock) Unlike(ctx context.Context, userID, targetID string) error {
	args := m.Called(ctx, userID, targetID)
	return args.Error(0)
}

func (m *CollaboratorServiceMock) ListMatches(ctx context.Context, userID string) ([]models.MatchWithProfile, error) {
	args := m.Called(ctx, userID)
	var list []models.MatchWithProfile
	if val := args.Get(0); val != nil {
		list = val.([]models.MatchWithProfile)
	}
	return list, args.Error(1)
}

func (m *CollaboratorServiceMock) ListPotential(ctx context.Context, userID string) ([]models.ProfileSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ProfileSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ProfileSummary)
	}
	return list, args.Error(1)
}

type MessagingServiceMock struct {
	mock.Mock
}

func (m *MessagingServiceMock) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *MessagingServiceMock) OpenConversation(ctx context.Context, conversationID, readerID string) ([]models.MessageWithSender, error) {
	args := m.Called(ctx, conversationID, readerID)
	var msgs []models.MessageWithSender
	if val := args.Get(0); val != nil {
		msgs = val.([]models.MessageWithSender)
	}
	return msgs, args.Error(1)
}

func (m *MessagingServiceMock) PostMessage(ctx context.Context, conversationID, senderID, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessagingServiceMock) StartConversation(ctx context.Context, req models.NewConversation) (models.StartedConversation, error) {
	args := m.Called(ctx, req)
	var started models.StartedConversation
	if val := args.Get(0); val != nil {
		started = val.(models.StartedConversation)
	}
	return started, args.Error(1)
}

func (m *MessagingServiceMock) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	args := m.Called(ctx, conversationID, readerID)
	return args.Get(0).(int64), args.Error(1)
}
