package repositories

import (
	"context"

	"github.com/lib/pq"

	"collab-service/internal/models"
)

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, conversationID string, senderID string, content string) (models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.MessageWithSender, error)
	GetMessagesByIDs(ctx context.Context, messageIDs []string) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID string, readerID string) (int64, error)
	UnreadCounts(ctx context.Context, conversationIDs []string, userID string) ([]models.UnreadCount, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db DBTX
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db DBTX) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content, read, created_at`

// CreateMessage stores an unread message.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationID string, senderID string, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (conversation_id, sender_id, content) VALUES ($1, $2, $3) RETURNING `+messageColumns,
		conversationID, senderID, content).StructScan(&msg)
	if err != nil {
		return models.Message{}, dbError("messageRepo.CreateMessage.Insert", err)
	}
	return msg, nil
}

// ListMessages returns a conversation's messages oldest first with sender display data.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string) ([]models.MessageWithSender, error) {
	msgs := []models.MessageWithSender{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.read, m.created_at,
            COALESCE(p.full_name, '') AS sender_name, COALESCE(p.avatar_url, '') AS sender_avatar
        FROM messages m
        LEFT JOIN profiles p ON p.id = m.sender_id
        WHERE m.conversation_id=$1
        ORDER BY m.created_at ASC`, conversationID)
	if err != nil {
		return nil, dbError("messageRepo.ListMessages.Select", err)
	}
	return msgs, nil
}

// GetMessagesByIDs fetches several messages at once.
func (r *MessageRepo) GetMessagesByIDs(ctx context.Context, messageIDs []string) ([]models.Message, error) {
	msgs := []models.Message{}
	if len(messageIDs) == 0 {
		return msgs, nil
	}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE id = ANY($1::uuid[])`, pq.Array(messageIDs))
	if err != nil {
		return nil, dbError("messageRepo.GetMessagesByIDs.Select", err)
	}
	return msgs, nil
}

// MarkRead flips read on every unread message the reader did not author.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID string, readerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read = TRUE WHERE conversation_id=$1 AND sender_id<>$2 AND read = FALSE`, conversationID, readerID)
	if err != nil {
		return 0, dbError("messageRepo.MarkRead.Exec", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, dbError("messageRepo.MarkRead.RowsAffected", err)
	}
	return count, nil
}

// UnreadCounts tallies unread messages from others per conversation. Conversations
// with nothing unread are omitted.
func (r *MessageRepo) UnreadCounts(ctx context.Context, conversationIDs []string, userID string) ([]models.UnreadCount, error) {
	counts := []models.UnreadCount{}
	if len(conversationIDs) == 0 {
		return counts, nil
	}
	err := r.db.SelectContext(ctx, &counts, `SELECT conversation_id, COUNT(*) AS unread
        FROM messages
        WHERE conversation_id = ANY($1::uuid[]) AND sender_id<>$2 AND read = FALSE
        GROUP BY conversation_id`, pq.Array(conversationIDs), userID)
	if err != nil {
		return nil, dbError("messageRepo.UnreadCounts.Select", err)
	}
	return counts, nil
}
