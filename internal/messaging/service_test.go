package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-service/internal/apperrors"
	"collab-service/internal/events"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

const (
	alice  = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	bob    = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
	carol  = "eeeeeeee-eeee-4eee-8eee-eeeeeeeeeeee"
	convA  = "cccccccc-cccc-4ccc-8ccc-cccccccccccc"
	convB  = "cccccccc-cccc-4ccc-8ccc-cccccccccccd"
	msgID  = "dddddddd-dddd-4ddd-8ddd-dddddddddddd"
	msgID2 = "dddddddd-dddd-4ddd-8ddd-ddddddddddde"
)

type fixture struct {
	convs     *mocks.ConversationRepositoryMock
	msgs      *mocks.MessageRepositoryMock
	tx        *mocks.TransactorMock
	publisher *mocks.PublisherMock
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		convs:     new(mocks.ConversationRepositoryMock),
		msgs:      new(mocks.MessageRepositoryMock),
		publisher: new(mocks.PublisherMock),
	}
	repos := repositories.Repos{Matches: new(mocks.MatchRepositoryMock), Conversations: f.convs, Messages: f.msgs}
	f.tx = &mocks.TransactorMock{Repos: repos}
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.svc = NewService(f.tx, repos, events.NewEmitter(f.publisher, "collab-service", "amqp", nil), nil)
	return f
}

func (f *fixture) published(routingKey string) []events.Envelope {
	var out []events.Envelope
	for _, call := range f.publisher.Calls {
		if call.Method == "Publish" && call.Arguments.String(1) == routingKey {
			out = append(out, call.Arguments.Get(2).(events.Envelope))
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestListConversationsAssemblesSummaries(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	convs := []models.Conversation{
		{ID: convA, Type: models.ConversationDirect, LastMessageID: strPtr(msgID), UpdatedAt: now},
		{ID: convB, Type: models.ConversationGroup, Name: strPtr("Lab"), UpdatedAt: now.Add(-time.Hour)},
	}
	f.convs.On("ListForUser", mock.Anything, alice).Return(convs, nil).Once()
	f.msgs.On("GetMessagesByIDs", mock.Anything, []string{msgID}).
		Return([]models.Message{{ID: msgID, ConversationID: convA, SenderID: bob, Content: "hi"}}, nil).Once()
	f.convs.On("ListParticipantProfiles", mock.Anything, []string{convA, convB}, alice).Return([]models.ConversationProfile{
		{ConversationID: convA, ProfileSummary: models.ProfileSummary{ID: bob, FullName: "Bob"}},
		{ConversationID: convB, ProfileSummary: models.ProfileSummary{ID: bob, FullName: "Bob"}},
		{ConversationID: convB, ProfileSummary: models.ProfileSummary{ID: carol, FullName: "Carol"}},
	}, nil).Once()
	f.msgs.On("UnreadCounts", mock.Anything, []string{convA, convB}, alice).
		Return([]models.UnreadCount{{ConversationID: convA, Count: 3}}, nil).Once()

	summaries, err := f.svc.ListConversations(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, convA, summaries[0].ID)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "hi", summaries[0].LastMessage.Content)
	assert.Equal(t, 3, summaries[0].Unread)
	assert.Len(t, summaries[0].Participants, 1)

	assert.Equal(t, convB, summaries[1].ID)
	assert.Nil(t, summaries[1].LastMessage)
	assert.Equal(t, 0, summaries[1].Unread)
	assert.Len(t, summaries[1].Participants, 2)
}

func TestListConversationsEmpty(t *testing.T) {
	f := newFixture(t)
	f.convs.On("ListForUser", mock.Anything, alice).Return([]models.Conversation{}, nil).Once()

	summaries, err := f.svc.ListConversations(context.Background(), alice)
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
	f.msgs.AssertNotCalled(t, "UnreadCounts", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenConversationMarksRead(t *testing.T) {
	f := newFixture(t)
	thread := []models.MessageWithSender{
		{Message: models.Message{ID: msgID, SenderID: bob, Content: "first"}},
		{Message: models.Message{ID: msgID2, SenderID: alice, Content: "second"}},
	}
	f.tx.On("InTx", mock.Anything).Return(nil).Once()
	f.convs.On("IsParticipant", mock.Anything, convA, alice).Return(true, nil).Once()
	f.msgs.On("ListMessages", mock.Anything, convA).Return(thread, nil).Once()
	f.msgs.On("MarkRead", mock.Anything, convA, alice).Return(int64(1), nil).Once()

	got, err := f.svc.OpenConversation(context.Background(), convA, alice)
	require.NoError(t, err)
	assert.Equal(t, thread, got)
	f.msgs.AssertExpectations(t)
}

func TestNonParticipantIsRejectedEverywhere(t *testing.T) {
	f := newFixture(t)
	f.tx.On("InTx", mock.Anything).Return(nil)
	f.convs.On("IsParticipant", mock.Anything, convA, carol).Return(false, nil)
	f.convs.On("GetConversation", mock.Anything, convA).Return(models.Conversation{ID: convA, Type: models.ConversationDirect}, nil)

	_, err := f.svc.OpenConversation(context.Background(), convA, carol)
	assert.ErrorIs(t, err, apperrors.ErrNotAParticipant)

	_, err = f.svc.PostMessage(context.Background(), convA, carol, "hello")
	assert.ErrorIs(t, err, apperrors.ErrNotAParticipant)

	_, err = f.svc.MarkRead(context.Background(), convA, carol)
	assert.ErrorIs(t, err, apperrors.ErrNotAParticipant)

	f.msgs.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
	f.msgs.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.msgs.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.Calls)
}

func TestUnknownConversationIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.tx.On("InTx", mock.Anything).Return(nil)
	f.convs.On("IsParticipant", mock.Anything, convB, alice).Return(false, nil)
	f.convs.On("GetConversation", mock.Anything, convB).Return(nil, repositories.ErrConversationNotFound)

	_, err := f.svc.OpenConversation(context.Background(), convB, alice)
	assert.ErrorIs(t, err, repositories.ErrConversationNotFound)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	_, err = f.svc.PostMessage(context.Background(), convB, alice, "hello")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	f.msgs.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.Calls)
}

func TestPostMessageUpdatesLastMessageAndPublishes(t *testing.T) {
	f := newFixture(t)
	msg := models.Message{ID: msgID, ConversationID: convA, SenderID: alice, Content: "hello"}
	f.tx.On("InTx", mock.Anything).Return(nil).Once()
	f.convs.On("IsParticipant", mock.Anything, convA, alice).Return(true, nil).Once()
	f.msgs.On("CreateMessage", mock.Anything, convA, alice, "hello").Return(msg, nil).Once()
	f.convs.On("SetLastMessage", mock.Anything, convA, msgID).Return(nil).Once()
	f.convs.On("ListParticipantProfiles", mock.Anything, []string{convA}, alice).
		Return([]models.ConversationProfile{{ConversationID: convA, ProfileSummary: models.ProfileSummary{ID: bob}}}, nil).Once()

	got, err := f.svc.PostMessage(context.Background(), convA, alice, "hello")
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	sent := f.published(events.MessageCreated)
	require.Len(t, sent, 1)
	payload := sent[0].Payload.(events.MessagePosted)
	assert.Equal(t, []string{bob}, payload.RecipientIDs)
	f.convs.AssertExpectations(t)
}

func TestPostMessageValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PostMessage(context.Background(), convA, alice, "   ")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = f.svc.PostMessage(context.Background(), "", alice, "x")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = f.svc.PostMessage(context.Background(), "42", alice, "x")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	f.tx.AssertNotCalled(t, "InTx", mock.Anything)
}

func TestStartDirectConversationCreatesOnce(t *testing.T) {
	f := newFixture(t)
	key := repositories.PairKey(alice, bob)
	conv := models.Conversation{ID: convA, Type: models.ConversationDirect, PairKey: &key}
	msg := models.Message{ID: msgID, ConversationID: convA, SenderID: alice, Content: "hey"}

	f.tx.On("InPairTx", mock.Anything, alice, bob).Return(nil).Once()
	f.convs.On("FindByPairKey", mock.Anything, key).Return(nil, repositories.ErrConversationNotFound).Once()
	f.convs.On("CreateConversation", mock.Anything, models.ConversationDirect, (*string)(nil), mock.MatchedBy(func(k *string) bool { return k != nil && *k == key })).
		Return(conv, nil).Once()
	f.convs.On("AddParticipants", mock.Anything, convA, []string{alice, bob}).Return(nil).Once()
	f.msgs.On("CreateMessage", mock.Anything, convA, alice, "hey").Return(msg, nil).Once()
	f.convs.On("SetLastMessage", mock.Anything, convA, msgID).Return(nil).Once()

	started, err := f.svc.StartConversation(context.Background(), models.NewConversation{
		CreatorID:    alice,
		Participants: []string{bob, alice, "BBBBBBBB-BBBB-4BBB-8BBB-BBBBBBBBBBBB"},
		Content:      "hey",
	})
	require.NoError(t, err)

	assert.True(t, started.Created)
	assert.Equal(t, convA, started.Conversation.ID)
	require.NotNil(t, started.Conversation.LastMessageID)
	assert.Equal(t, msgID, *started.Conversation.LastMessageID)
	assert.Len(t, f.published(events.ConversationCreated), 1)
	assert.Len(t, f.published(events.MessageCreated), 1)
	f.convs.AssertExpectations(t)
}

func TestStartDirectConversationReusesPair(t *testing.T) {
	f := newFixture(t)
	key := repositories.PairKey(alice, bob)
	conv := models.Conversation{ID: convA, Type: models.ConversationDirect, PairKey: &key}

	f.tx.On("InPairTx", mock.Anything, alice, bob).Return(nil).Once()
	f.convs.On("FindByPairKey", mock.Anything, key).Return(conv, nil).Once()
	f.convs.On("AddParticipants", mock.Anything, convA, []string{alice, bob}).Return(nil).Once()
	f.msgs.On("CreateMessage", mock.Anything, convA, alice, "again").Return(models.Message{ID: msgID2}, nil).Once()
	f.convs.On("SetLastMessage", mock.Anything, convA, msgID2).Return(nil).Once()

	started, err := f.svc.StartConversation(context.Background(), models.NewConversation{CreatorID: alice, Participants: []string{bob}, Content: "again"})
	require.NoError(t, err)

	assert.False(t, started.Created)
	f.convs.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.published(events.ConversationCreated))
}

func TestStartGroupConversation(t *testing.T) {
	f := newFixture(t)
	f.tx.On("InTx", mock.Anything).Return(nil).Once()
	f.convs.On("CreateConversation", mock.Anything, models.ConversationGroup, mock.MatchedBy(func(n *string) bool { return n != nil && *n == "Lab" }), (*string)(nil)).
		Return(models.Conversation{ID: convB, Type: models.ConversationGroup}, nil).Once()
	f.convs.On("AddParticipants", mock.Anything, convB, []string{alice, bob, carol}).Return(nil).Once()
	f.msgs.On("CreateMessage", mock.Anything, convB, alice, "welcome").Return(models.Message{ID: msgID}, nil).Once()
	f.convs.On("SetLastMessage", mock.Anything, convB, msgID).Return(nil).Once()

	started, err := f.svc.StartConversation(context.Background(), models.NewConversation{
		CreatorID:    alice,
		Participants: []string{bob, carol},
		Name:         strPtr("  Lab "),
		Content:      "welcome",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConversationGroup, started.Conversation.Type)
	assert.True(t, started.Created)
	f.convs.AssertExpectations(t)
}

func TestStartConversationValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]models.NewConversation{
		"no participants":    {CreatorID: alice, Content: "x"},
		"only self":          {CreatorID: alice, Participants: []string{alice}, Content: "x"},
		"bad participant":    {CreatorID: alice, Participants: []string{"nope"}, Content: "x"},
		"no content":         {CreatorID: alice, Participants: []string{bob}},
		"group without name": {CreatorID: alice, Participants: []string{bob, carol}, Content: "x"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.StartConversation(context.Background(), req)
			assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
		})
	}
	f.tx.AssertNotCalled(t, "InTx", mock.Anything)
	f.tx.AssertNotCalled(t, "InPairTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadReturnsCount(t *testing.T) {
	f := newFixture(t)
	f.tx.On("InTx", mock.Anything).Return(nil).Once()
	f.convs.On("IsParticipant", mock.Anything, convA, bob).Return(true, nil).Once()
	f.msgs.On("MarkRead", mock.Anything, convA, bob).Return(int64(4), nil).Once()

	n, err := f.svc.MarkRead(context.Background(), convA, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
