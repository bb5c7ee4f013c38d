package models

import "time"

// Message is content belonging to a conversation. A message is valid only if
// it carries trimmed text or an attachment. Soft delete clears the text and
// sets the flag; the attachment reference is deliberately kept.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Deleted        bool      `db:"deleted" json:"deleted"`
	AttachmentID   *string   `db:"attachment_id" json:"attachment_id,omitempty"`
	AttachmentType *string   `db:"attachment_type" json:"attachment_type,omitempty"`
	AttachmentName *string   `db:"attachment_name" json:"attachment_name,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Attachment describes an uploaded object by its storage handle.
type Attachment struct {
	Handle   string `json:"handle"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
}

// MessageView is a message resolved for one reader: sender profile attached,
// ownership flagged, attachment handle exchanged for a retrievable URL.
type MessageView struct {
	Message
	Sender        User    `json:"sender"`
	IsOwn         bool    `json:"is_own"`
	AttachmentURL *string `json:"attachment_url,omitempty"`
}
