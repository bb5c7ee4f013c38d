package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

// ConversationRepository abstracts conversation and membership persistence.
type ConversationRepository interface {
	GetOrCreateDirect(ctx context.Context, userID, otherID int) (models.Conversation, error)
	CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error)
	GetForUser(ctx context.Context, conversationID, userID int) (*models.ConversationSummary, error)
	IsMember(ctx context.Context, conversationID, userID int) (bool, error)
	MemberIDs(ctx context.Context, conversationID int) ([]int, error)
	MarkRead(ctx context.Context, conversationID, userID int) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `c.id, c.is_group, c.name, c.last_message_id, c.last_message_at, c.created_at`

// GetOrCreateDirect returns the existing direct conversation between the two
// users or creates one. The lookup and creation share one transaction; the
// caller's read cursor starts at now, the other member's at epoch so the
// whole history counts as unread for them. There is no "already exists"
// error path.
func (r *ConversationRepo) GetOrCreateDirect(ctx context.Context, userID, otherID int) (models.Conversation, error) {
	if userID == otherID {
		return models.Conversation{}, fmt.Errorf("%w: cannot start a conversation with yourself", ErrValidation)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var conv models.Conversation
	err = tx.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations c
        JOIN conversation_members a ON a.conversation_id = c.id AND a.user_id = $1
        JOIN conversation_members b ON b.conversation_id = c.id AND b.user_id = $2
        WHERE c.is_group = FALSE
        ORDER BY c.id ASC
        LIMIT 1`, userID, otherID)
	if err == nil {
		err = tx.Commit()
		return conv, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	if err = tx.QueryRowxContext(ctx, `INSERT INTO conversations (is_group) VALUES (FALSE) RETURNING id, is_group, name, last_message_id, last_message_at, created_at`).
		StructScan(&conv); err != nil {
		return models.Conversation{}, err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO conversation_members (conversation_id, user_id, last_read_at) VALUES ($1, $2, NOW()), ($1, $3, to_timestamp(0))`,
		conv.ID, userID, otherID); err != nil {
		return models.Conversation{}, err
	}

	err = tx.Commit()
	return conv, err
}

// CreateGroup creates a group conversation and all memberships atomically.
// The member list is deduplicated and the owner dropped from it; an empty
// name or an empty resulting member list fails validation.
func (r *ConversationRepo) CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Conversation{}, fmt.Errorf("%w: group name is required", ErrValidation)
	}

	memberSet := map[int]struct{}{}
	for _, id := range memberIDs {
		if id != ownerID {
			memberSet[id] = struct{}{}
		}
	}
	if len(memberSet) == 0 {
		return models.Conversation{}, fmt.Errorf("%w: a group needs at least one other member", ErrValidation)
	}
	others := make([]int, 0, len(memberSet))
	for id := range memberSet {
		others = append(others, id)
	}
	sort.Ints(others)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var conv models.Conversation
	if err = tx.QueryRowxContext(ctx, `INSERT INTO conversations (is_group, name) VALUES (TRUE, $1) RETURNING id, is_group, name, last_message_id, last_message_at, created_at`, name).
		StructScan(&conv); err != nil {
		return models.Conversation{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO conversation_members (conversation_id, user_id, last_read_at) VALUES ($1, $2, NOW())`, conv.ID, ownerID); err != nil {
		return models.Conversation{}, err
	}
	for _, id := range others {
		if _, err = tx.ExecContext(ctx, `INSERT INTO conversation_members (conversation_id, user_id, last_read_at) VALUES ($1, $2, to_timestamp(0))`, conv.ID, id); err != nil {
			return models.Conversation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

type conversationRow struct {
	models.Conversation
	LastReadAt  time.Time `db:"last_read_at"`
	UnreadCount int       `db:"unread_count"`
}

const summaryQuery = `SELECT ` + conversationColumns + `, m.last_read_at,
        (SELECT COUNT(*) FROM messages msg
            WHERE msg.conversation_id = c.id
              AND msg.created_at > m.last_read_at
              AND msg.sender_id <> m.user_id) AS unread_count
        FROM conversations c
        JOIN conversation_members m ON m.conversation_id = c.id
        WHERE m.user_id = $1`

// ListForUser returns every conversation the user belongs to, newest
// activity first. Conversations without messages sort by creation time.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	var rows []conversationRow
	err := r.db.SelectContext(ctx, &rows, summaryQuery+` ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows, userID)
}

// GetForUser fetches one conversation as seen by the user. A missing
// conversation and one the user is not a member of look the same: an absent
// result, never an error.
func (r *ConversationRepo) GetForUser(ctx context.Context, conversationID, userID int) (*models.ConversationSummary, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, summaryQuery+` AND c.id = $2`, userID, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	summaries, err := r.hydrate(ctx, []conversationRow{row}, userID)
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

// hydrate attaches member profiles and denormalized last messages to a set
// of conversation rows using one query per concern, not one per conversation.
func (r *ConversationRepo) hydrate(ctx context.Context, rows []conversationRow, userID int) ([]models.ConversationSummary, error) {
	if len(rows) == 0 {
		return []models.ConversationSummary{}, nil
	}

	convIDs := make([]int, 0, len(rows))
	lastMessageIDs := make([]int, 0, len(rows))
	for _, row := range rows {
		convIDs = append(convIDs, row.ID)
		if row.LastMessageID != nil {
			lastMessageIDs = append(lastMessageIDs, *row.LastMessageID)
		}
	}

	type memberRow struct {
		ConversationID int `db:"conversation_id"`
		models.User
	}
	var memberRows []memberRow
	if err := r.db.SelectContext(ctx, &memberRows, `SELECT cm.conversation_id, u.id, u.external_id, u.name, u.email, u.avatar_url, u.created_at
        FROM conversation_members cm
        JOIN users u ON u.id = cm.user_id
        WHERE cm.conversation_id = ANY($1)
        ORDER BY u.id ASC`, pq.Array(convIDs)); err != nil {
		return nil, err
	}
	membersByConv := map[int][]models.User{}
	for _, m := range memberRows {
		membersByConv[m.ConversationID] = append(membersByConv[m.ConversationID], m.User)
	}

	lastByID := map[int]models.Message{}
	if len(lastMessageIDs) > 0 {
		var msgs []models.Message
		if err := r.db.SelectContext(ctx, &msgs, `SELECT id, conversation_id, sender_id, content, deleted, attachment_id, attachment_type, attachment_name, created_at
            FROM messages WHERE id = ANY($1)`, pq.Array(lastMessageIDs)); err != nil {
			return nil, err
		}
		for _, m := range msgs {
			lastByID[m.ID] = m
		}
	}

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		members := membersByConv[row.ID]
		others := make([]models.User, 0, len(members))
		for _, m := range members {
			if m.ID != userID {
				others = append(others, m)
			}
		}
		summary := models.ConversationSummary{
			Conversation: row.Conversation,
			Members:      members,
			Others:       others,
			UnreadCount:  row.UnreadCount,
		}
		if row.LastMessageID != nil {
			if msg, ok := lastByID[*row.LastMessageID]; ok {
				summary.LastMessage = &msg
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// IsMember checks whether a user belongs to the conversation.
func (r *ConversationRepo) IsMember(ctx context.Context, conversationID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversation_members WHERE conversation_id=$1 AND user_id=$2)`, conversationID, userID)
	return exists, err
}

// MemberIDs returns the user ids of all members.
func (r *ConversationRepo) MemberIDs(ctx context.Context, conversationID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM conversation_members WHERE conversation_id=$1 ORDER BY user_id ASC`, conversationID)
	return ids, err
}

// MarkRead advances the caller's read cursor to now. This is the only path
// that lowers unread counts; repeated calls are harmless.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversation_members SET last_read_at = NOW() WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotMember
	}
	return nil
}
