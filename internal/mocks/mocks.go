package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

type MatchRepositoryMock struct {
	mock.Mock
}

func (m *MatchRepositoryMock) CreateEdge(ctx context.Context, userID, targetID string) (models.MatchEdge, error) {
	args := m.Called(ctx, userID, targetID)
	var edge models.MatchEdge
	if val := args.Get(0); val != nil {
		edge = val.(models.MatchEdge)
	}
	return edge, args.Error(1)
}

func (m *MatchRepositoryMock) FindEdge(ctx context.Context, userID, targetID string) (models.MatchEdge, error) {
	args := m.Called(ctx, userID, targetID)
	var edge models.MatchEdge
	if val := args.Get(0); val != nil {
		edge = val.(models.MatchEdge)
	}
	return edge, args.Error(1)
}

func (m *MatchRepositoryMock) DeleteEdge(ctx context.Context, userID, targetID string) error {
	args := m.Called(ctx, userID, targetID)
	return args.Error(0)
}

func (m *MatchRepositoryMock) PromotePair(ctx context.Context, userID, targetID string) (int64, error) {
	args := m.Called(ctx, userID, targetID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MatchRepositoryMock) ListMatched(ctx context.Context, userID string) ([]models.MatchWithProfile, error) {
	args := m.Called(ctx, userID)
	var list []models.MatchWithProfile
	if val := args.Get(0); val != nil {
		list = val.([]models.MatchWithProfile)
	}
	return list, args.Error(1)
}

func (m *MatchRepositoryMock) ListPotential(ctx context.Context, userID string, limit int) ([]models.ProfileSummary, error) {
	args := m.Called(ctx, userID, limit)
	var list []models.ProfileSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ProfileSummary)
	}
	return list, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateConversation(ctx context.Context, convType models.ConversationType, name *string, pairKey *string) (models.Conversation, error) {
	args := m.Called(ctx, convType, name, pairKey)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) FindByPairKey(ctx context.Context, pairKey string) (models.Conversation, error) {
	args := m.Called(ctx, pairKey)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) AddParticipants(ctx context.Context, conversationID string, userIDs []string) error {
	args := m.Called(ctx, conversationID, userIDs)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) ListParticipantProfiles(ctx context.Context, conversationIDs []string, excludeUserID string) ([]models.ConversationProfile, error) {
	args := m.Called(ctx, conversationIDs, excludeUserID)
	var list []models.ConversationProfile
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationProfile)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) SetLastMessage(ctx context.Context, conversationID string, messageID string) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, conversationID string, senderID string, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, conversationID string) ([]models.MessageWithSender, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.MessageWithSender
	if val := args.Get(0); val != nil {
		msgs = val.([]models.MessageWithSender)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessagesByIDs(ctx context.Context, messageIDs []string) ([]models.Message, error) {
	args := m.Called(ctx, messageIDs)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, conversationID string, readerID string) (int64, error) {
	args := m.Called(ctx, conversationID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, conversationIDs []string, userID string) ([]models.UnreadCount, error) {
	args := m.Called(ctx, conversationIDs, userID)
	var counts []models.UnreadCount
	if val := args.Get(0); val != nil {
		counts = val.([]models.UnreadCount)
	}
	return counts, args.Error(1)
}

// TransactorMock runs fn directly against Repos. Expectations are set on
// "InTx" (no args besides ctx) and "InPairTx" (ctx, a, b); a non-nil
// configured error is returned without running fn.
type TransactorMock struct {
	mock.Mock
	Repos repositories.Repos
}

func (m *TransactorMock) InTx(ctx context.Context, fn func(ctx context.Context, repos repositories.Repos) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.Repos)
}

func (m *TransactorMock) InPairTx(ctx context.Context, a, b string, fn func(ctx context.Context, repos repositories.Repos) error) error {
	args := m.Called(ctx, a, b)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.Repos)
}
