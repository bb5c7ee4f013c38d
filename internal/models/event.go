package models

// Event type constants broadcast into conversation rooms.
const (
	EventMessage        = "message"
	EventMessageDeleted = "message_deleted"
	EventReaction       = "reaction"
	EventRead           = "read"
	EventTyping         = "typing"
)

// ConversationEvent is the envelope pushed over websockets whenever a write
// invalidates a conversation's derived views. Consumers re-query what the
// event names: a "message" event the message list, a "read" event the unread
// counters, and so on.
type ConversationEvent struct {
	Type      string       `json:"type"`
	Message   *MessageView `json:"message,omitempty"`
	MessageID int          `json:"message_id,omitempty"`
	UserID    int          `json:"user_id,omitempty"`
	Emoji     string       `json:"emoji,omitempty"`
	Typing    bool         `json:"typing,omitempty"`
}
