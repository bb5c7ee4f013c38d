package models

import "time"

// Conversation is a channel: either a two-member direct conversation or a
// named group. The last-message fields are denormalized on every send.
type Conversation struct {
	ID            int        `db:"id" json:"id"`
	IsGroup       bool       `db:"is_group" json:"is_group"`
	Name          *string    `db:"name" json:"name,omitempty"`
	LastMessageID *int       `db:"last_message_id" json:"last_message_id,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Membership is the per-user read cursor and authorization record for a
// conversation. LastReadAt only moves via the member's own send or an
// explicit mark-as-read.
type Membership struct {
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	UserID         int       `db:"user_id" json:"user_id"`
	LastReadAt     time.Time `db:"last_read_at" json:"last_read_at"`
}

// ConversationSummary is the API view of a conversation for one member.
type ConversationSummary struct {
	Conversation
	Members     []User   `json:"members"`
	Others      []User   `json:"others"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}
