package models

import "time"

type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Conversation is a message thread owned jointly by its participants.
type Conversation struct {
	ID            string           `db:"id" json:"id"`
	Type          ConversationType `db:"type" json:"type"`
	Name          *string          `db:"name" json:"name"`
	LastMessageID *string          `db:"last_message_id" json:"last_message_id"`
	PairKey       *string          `db:"pair_key" json:"-"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// ConversationSummary is the per-user view returned by the inbox listing.
type ConversationSummary struct {
	Conversation
	LastMessage  *Message         `json:"last_message"`
	Participants []ProfileSummary `json:"participants"`
	Unread       int              `json:"unread"`
}

// UnreadCount is a per-conversation unread tally for one reader.
type UnreadCount struct {
	ConversationID string `db:"conversation_id"`
	Count          int    `db:"unread"`
}

// ConversationProfile is a participant profile keyed by conversation.
type ConversationProfile struct {
	ConversationID string `db:"conversation_id"`
	ProfileSummary
}
