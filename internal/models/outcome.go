package models

// LikeOutcome is the result of one interest submission.
type LikeOutcome struct {
	Edge MatchEdge
	// Matched is set when the inverse edge existed and both were promoted.
	Matched            bool
	ConversationID     string
	ConversationReused bool
}

// NewConversation describes a conversation started explicitly by a user.
type NewConversation struct {
	CreatorID    string
	Participants []string
	Name         *string
	Content      string
}

// StartedConversation is a conversation together with its first message.
type StartedConversation struct {
	Conversation Conversation `json:"conversation"`
	Message      Message      `json:"message"`
	Created      bool         `json:"created"`
}
