package models

import "time"

// Message is a single entry in a conversation.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Read           bool      `db:"read" json:"read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MessageWithSender annotates a message with the sender's display data.
type MessageWithSender struct {
	Message
	SenderName   string `db:"sender_name" json:"sender_name,omitempty"`
	SenderAvatar string `db:"sender_avatar" json:"sender_avatar,omitempty"`
}
