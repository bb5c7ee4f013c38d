package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ReactionRepository abstracts the per-emoji reaction ledger.
type ReactionRepository interface {
	Toggle(ctx context.Context, messageID, userID int, emoji string) (added bool, err error)
	ListForMessage(ctx context.Context, messageID, callerID int) ([]models.ReactionSummary, error)
	ListForConversation(ctx context.Context, conversationID, callerID int) (map[int][]models.ReactionSummary, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// Toggle removes the (message, user, emoji) row if it exists, inserts it
// otherwise, and reports whether the reaction is now present. The composite
// primary key plus ON CONFLICT DO NOTHING keeps concurrent toggles on the
// same key from both inserting; the delete-then-insert runs in one
// transaction.
func (r *ReactionRepo) Toggle(ctx context.Context, messageID, userID int, emoji string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	added := false
	if deleted == 0 {
		if _, err = tx.ExecContext(ctx, `INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, messageID, userID, emoji); err != nil {
			return false, err
		}
		added = true
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return added, nil
}

// ListForMessage groups the message's reactions by emoji. A callerID of zero
// matches no rows, so anonymous readers simply see reacted=false.
func (r *ReactionRepo) ListForMessage(ctx context.Context, messageID, callerID int) ([]models.ReactionSummary, error) {
	summaries := []models.ReactionSummary{}
	err := r.db.SelectContext(ctx, &summaries, `SELECT emoji, COUNT(*) AS count, BOOL_OR(user_id = $2) AS reacted
        FROM reactions WHERE message_id=$1
        GROUP BY emoji
        ORDER BY MIN(created_at) ASC`, messageID, callerID)
	return summaries, err
}

// ListForConversation produces the same grouping as ListForMessage for every
// message in the conversation using a single pass over one query.
func (r *ReactionRepo) ListForConversation(ctx context.Context, conversationID, callerID int) (map[int][]models.ReactionSummary, error) {
	type row struct {
		MessageID int `db:"message_id"`
		models.ReactionSummary
	}
	var rows []row
	err := r.db.SelectContext(ctx, &rows, `SELECT r.message_id, r.emoji, COUNT(*) AS count, BOOL_OR(r.user_id = $2) AS reacted
        FROM reactions r
        JOIN messages m ON m.id = r.message_id
        WHERE m.conversation_id = $1
        GROUP BY r.message_id, r.emoji
        ORDER BY r.message_id ASC, MIN(r.created_at) ASC`, conversationID, callerID)
	if err != nil {
		return nil, err
	}

	result := map[int][]models.ReactionSummary{}
	for _, r := range rows {
		result[r.MessageID] = append(result[r.MessageID], r.ReactionSummary)
	}
	return result, nil
}
