package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID int, content string, attachment *models.Attachment) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID int) ([]models.Message, error)
	Get(ctx context.Context, messageID int) (models.Message, error)
	SoftDelete(ctx context.Context, messageID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content, deleted, attachment_id, attachment_type, attachment_name, created_at`

// Create stores a message and, in the same transaction, bumps the
// conversation's denormalized last-message pointer and the sender's own read
// cursor. Sending implies having read everything up to the send. A failed
// send leaves no rows behind.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID int, content string, attachment *models.Attachment) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var attachmentID, attachmentType, attachmentName *string
	if attachment != nil {
		attachmentID = &attachment.Handle
		attachmentType = &attachment.MimeType
		attachmentName = &attachment.Filename
	}

	var msg models.Message
	if err = tx.QueryRowxContext(ctx, `INSERT INTO messages (conversation_id, sender_id, content, attachment_id, attachment_type, attachment_name)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+messageColumns, conversationID, senderID, content, attachmentID, attachmentType, attachmentName).
		StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE conversations SET last_message_id=$1, last_message_at=$2 WHERE id=$3`, msg.ID, msg.CreatedAt, conversationID); err != nil {
		return models.Message{}, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE conversation_members SET last_read_at=$1 WHERE conversation_id=$2 AND user_id=$3`, msg.CreatedAt, conversationID, senderID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListForConversation returns all messages oldest first. The serial id
// breaks ties between messages created in the same millisecond.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`, conversationID)
	return msgs, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDelete clears the content and sets the flag. The attachment reference
// is kept on purpose; readers hide it for deleted messages. Re-deleting an
// already deleted message is a no-op.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted = TRUE, content = '' WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
