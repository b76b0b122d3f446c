package models

import "time"

// MatchStatus is the lifecycle state of a directed edge.
type MatchStatus string

const (
	MatchStatusPending MatchStatus = "pending"
	MatchStatusMatched MatchStatus = "matched"
)

// MatchEdge is one user's expressed interest in another user.
type MatchEdge struct {
	ID            string      `db:"id" json:"id"`
	UserID        string      `db:"user_id" json:"user_id"`
	MatchedUserID string      `db:"matched_user_id" json:"matched_user_id"`
	Status        MatchStatus `db:"status" json:"status"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// MatchWithProfile is a matched edge joined with the counterpart's profile.
type MatchWithProfile struct {
	MatchEdge
	MatchedUser ProfileSummary `db:"matched_user" json:"matched_user"`
}
