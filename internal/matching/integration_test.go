package matching

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/apperrors"
	"collab-service/internal/config"
	"collab-service/internal/events"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
	"collab-service/internal/testdb"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	pool, cleanup, err := testdb.Start(context.Background())
	if err != nil {
		log.Printf("postgres unavailable, integration tests will be skipped: %v", err)
	} else {
		testDB = pool
	}

	code := m.Run()
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}

func liveService(t *testing.T, sender string) *Service {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres not available")
	}
	require.NoError(t, testdb.Truncate(context.Background(), testDB))

	store := repositories.NewStore(testDB, 5)
	cfg := config.MatchingConfig{WelcomeMessage: welcome, WelcomeSender: sender, PotentialLimit: 10}
	emitter := events.NewEmitter(events.Noop{}, "collab-service", "noop", nil)
	return NewService(store, store.Repos(), emitter, cfg, nil)
}

func edgeStatus(t *testing.T, from, to string) models.MatchStatus {
	t.Helper()
	var status models.MatchStatus
	require.NoError(t, testDB.Get(&status, `SELECT status FROM collaborator_matches WHERE user_id=$1 AND matched_user_id=$2`, from, to))
	return status
}

func conversationsBetween(t *testing.T, a, b string) []string {
	t.Helper()
	var ids []string
	require.NoError(t, testDB.Select(&ids, `SELECT cp1.conversation_id FROM conversation_participants cp1
        JOIN conversation_participants cp2 ON cp2.conversation_id = cp1.conversation_id
        WHERE cp1.user_id=$1 AND cp2.user_id=$2`, a, b))
	return ids
}

func TestMutualMatchScenario(t *testing.T) {
	svc := liveService(t, config.WelcomeSenderInitiator)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	first, err := svc.Like(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, first.Matched)
	assert.Equal(t, models.MatchStatusPending, edgeStatus(t, a, b))
	assert.Empty(t, conversationsBetween(t, a, b))

	second, err := svc.Like(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, second.Matched)
	assert.Equal(t, models.MatchStatusMatched, edgeStatus(t, a, b))
	assert.Equal(t, models.MatchStatusMatched, edgeStatus(t, b, a))

	convs := conversationsBetween(t, a, b)
	require.Len(t, convs, 1)
	assert.Equal(t, second.ConversationID, convs[0])

	var conv models.Conversation
	require.NoError(t, testDB.Get(&conv, `SELECT id, type, name, last_message_id, pair_key, created_at, updated_at FROM conversations WHERE id=$1`, convs[0]))
	assert.Equal(t, models.ConversationDirect, conv.Type)

	var msgs []models.Message
	require.NoError(t, testDB.Select(&msgs, `SELECT id, conversation_id, sender_id, content, read, created_at FROM messages WHERE conversation_id=$1`, convs[0]))
	require.Len(t, msgs, 1)
	assert.Equal(t, b, msgs[0].SenderID)
	assert.Equal(t, welcome, msgs[0].Content)
	assert.False(t, msgs[0].Read)
	require.NotNil(t, conv.LastMessageID)
	assert.Equal(t, msgs[0].ID, *conv.LastMessageID)
}

func TestSystemSenderAuthorsWelcome(t *testing.T) {
	svc := liveService(t, config.WelcomeSenderSystem)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	_, err := svc.Like(ctx, a, b)
	require.NoError(t, err)
	out, err := svc.Like(ctx, b, a)
	require.NoError(t, err)

	var sender string
	require.NoError(t, testDB.Get(&sender, `SELECT sender_id FROM messages WHERE conversation_id=$1`, out.ConversationID))
	assert.Equal(t, SystemSenderID, sender)
}

func TestDuplicateLikeKeepsOneEdge(t *testing.T) {
	svc := liveService(t, config.WelcomeSenderSystem)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	_, err := svc.Like(ctx, a, b)
	require.NoError(t, err)
	_, err = svc.Like(ctx, a, b)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEdge)

	var count int
	require.NoError(t, testDB.Get(&count, `SELECT COUNT(*) FROM collaborator_matches WHERE user_id=$1 AND matched_user_id=$2`, a, b))
	assert.Equal(t, 1, count)
}

func TestRematchReusesConversation(t *testing.T) {
	svc := liveService(t, config.WelcomeSenderSystem)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	_, err := svc.Like(ctx, a, b)
	require.NoError(t, err)
	first, err := svc.Like(ctx, b, a)
	require.NoError(t, err)

	require.NoError(t, svc.Unlike(ctx, a, b))
	assert.Equal(t, models.MatchStatusMatched, edgeStatus(t, b, a))

	again, err := svc.Like(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, again.Matched)
	assert.True(t, again.ConversationReused)
	assert.Equal(t, first.ConversationID, again.ConversationID)

	var welcomes int
	require.NoError(t, testDB.Get(&welcomes, `SELECT COUNT(*) FROM messages WHERE conversation_id=$1`, first.ConversationID))
	assert.Equal(t, 1, welcomes)
}

func TestConcurrentMutualLikesYieldOneConversation(t *testing.T) {
	svc := liveService(t, config.WelcomeSenderSystem)
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		a, b := uuid.NewString(), uuid.NewString()

		var wg sync.WaitGroup
		results := make([]models.LikeOutcome, 2)
		errs := make([]error, 2)
		start := make(chan struct{})
		for i, pair := range [][2]string{{a, b}, {b, a}} {
			wg.Add(1)
			go func(i int, from, to string) {
				defer wg.Done()
				<-start
				results[i], errs[i] = svc.Like(ctx, from, to)
			}(i, pair[0], pair[1])
		}
		close(start)
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.NotEqual(t, results[0].Matched, results[1].Matched, "exactly one like completes the match")
		assert.Equal(t, models.MatchStatusMatched, edgeStatus(t, a, b))
		assert.Equal(t, models.MatchStatusMatched, edgeStatus(t, b, a))
		assert.Len(t, conversationsBetween(t, a, b), 1)
	}
}
