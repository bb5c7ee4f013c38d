package models

import "time"

// Reaction records that a user reacted to a message with one emoji. The
// (message, user, emoji) triple is the primary key; toggling re-applies or
// removes the row.
type Reaction struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionSummary is one emoji's aggregate on a message: how many users
// reacted with it and whether the caller is among them.
type ReactionSummary struct {
	Emoji   string `db:"emoji" json:"emoji"`
	Count   int    `db:"count" json:"count"`
	Reacted bool   `db:"reacted" json:"reacted"`
}
