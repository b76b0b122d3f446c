package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"collab-service/internal/apperrors"
	"collab-service/internal/models"
)

var (
	ErrConversationNotFound  = apperrors.NotFound("conversation not found")
	ErrPairConversationTaken = errors.New("direct conversation already exists for pair")
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, convType models.ConversationType, name *string, pairKey *string) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	FindByPairKey(ctx context.Context, pairKey string) (models.Conversation, error)
	AddParticipants(ctx context.Context, conversationID string, userIDs []string) error
	IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	ListParticipantProfiles(ctx context.Context, conversationIDs []string, excludeUserID string) ([]models.ConversationProfile, error)
	SetLastMessage(ctx context.Context, conversationID string, messageID string) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db DBTX
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db DBTX) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, type, name, last_message_id, pair_key, created_at, updated_at`

// CreateConversation inserts a conversation without participants.
func (r *ConversationRepo) CreateConversation(ctx context.Context, convType models.ConversationType, name *string, pairKey *string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.QueryRowxContext(ctx, `INSERT INTO conversations (type, name, pair_key) VALUES ($1, $2, $3) RETURNING `+conversationColumns,
		convType, name, pairKey).StructScan(&conv)
	if isUniqueViolation(err) {
		return models.Conversation{}, ErrPairConversationTaken
	}
	if err != nil {
		return models.Conversation{}, dbError("conversationRepo.CreateConversation.Insert", err)
	}
	return conv, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, dbError("conversationRepo.GetConversation.Get", err)
	}
	return conv, nil
}

// FindByPairKey returns the direct conversation of an unordered user pair.
func (r *ConversationRepo) FindByPairKey(ctx context.Context, pairKey string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE pair_key=$1`, pairKey)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, dbError("conversationRepo.FindByPairKey.Get", err)
	}
	return conv, nil
}

// AddParticipants inserts participants, ignoring ones already present.
func (r *ConversationRepo) AddParticipants(ctx context.Context, conversationID string, userIDs []string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO conversation_participants (conversation_id, user_id)
        SELECT $1::uuid, u FROM unnest($2::uuid[]) AS u
        ON CONFLICT (conversation_id, user_id) DO NOTHING`, conversationID, pq.Array(userIDs))
	if err != nil {
		return dbError("conversationRepo.AddParticipants.Insert", err)
	}
	return nil
}

// IsParticipant checks membership.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2)`, conversationID, userID)
	if err != nil {
		return false, dbError("conversationRepo.IsParticipant.Get", err)
	}
	return exists, nil
}

// ListForUser returns the user's conversations, most recently active first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	err := r.db.SelectContext(ctx, &convs, `SELECT c.id, c.type, c.name, c.last_message_id, c.pair_key, c.created_at, c.updated_at
        FROM conversations c
        INNER JOIN conversation_participants cp ON cp.conversation_id = c.id
        WHERE cp.user_id=$1
        ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, dbError("conversationRepo.ListForUser.Select", err)
	}
	return convs, nil
}

// ListParticipantProfiles returns the participants of several conversations,
// excluding one user (normally the caller).
func (r *ConversationRepo) ListParticipantProfiles(ctx context.Context, conversationIDs []string, excludeUserID string) ([]models.ConversationProfile, error) {
	profiles := []models.ConversationProfile{}
	if len(conversationIDs) == 0 {
		return profiles, nil
	}
	err := r.db.SelectContext(ctx, &profiles, `SELECT cp.conversation_id, cp.user_id AS id,
            COALESCE(p.full_name, '') AS full_name, COALESCE(p.avatar_url, '') AS avatar_url,
            COALESCE(p.bio, '') AS bio, COALESCE(p.school, '') AS school,
            COALESCE(p.interests, '{}') AS interests, COALESCE(p.skills, '{}') AS skills
        FROM conversation_participants cp
        LEFT JOIN profiles p ON p.id = cp.user_id
        WHERE cp.conversation_id = ANY($1::uuid[]) AND cp.user_id <> $2
        ORDER BY cp.joined_at ASC`, pq.Array(conversationIDs), excludeUserID)
	if err != nil {
		return nil, dbError("conversationRepo.ListParticipantProfiles.Select", err)
	}
	return profiles, nil
}

// SetLastMessage moves the conversation's last message pointer and bumps updated_at.
func (r *ConversationRepo) SetLastMessage(ctx context.Context, conversationID string, messageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET last_message_id=$2, updated_at=clock_timestamp() WHERE id=$1`, conversationID, messageID)
	if err != nil {
		return dbError("conversationRepo.SetLastMessage.Exec", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return dbError("conversationRepo.SetLastMessage.RowsAffected", err)
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}
