package models

import "github.com/lib/pq"

// ProfileSummary is the public slice of a user profile this service reads.
type ProfileSummary struct {
	ID        string         `db:"id" json:"id"`
	FullName  string         `db:"full_name" json:"full_name"`
	AvatarURL string         `db:"avatar_url" json:"avatar_url,omitempty"`
	Bio       string         `db:"bio" json:"bio,omitempty"`
	School    string         `db:"school" json:"school,omitempty"`
	Interests pq.StringArray `db:"interests" json:"interests"`
	Skills    pq.StringArray `db:"skills" json:"skills"`
}
