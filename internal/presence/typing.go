package presence

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// typingStaleAfter bounds how long a keystroke counts as "still typing".
// The client's own auto-clear timer is a UX nicety; this read-time filter is
// the correctness mechanism.
const typingStaleAfter = 3 * time.Second

// TypingTracker records ephemeral per-(conversation, user) typing signals.
type TypingTracker interface {
	SetTyping(ctx context.Context, conversationID, userID int) error
	ClearTyping(ctx context.Context, conversationID, userID int) error
	TypingUserIDs(ctx context.Context, conversationID, excludeUserID int) ([]int, error)
}

// RedisTypingTracker keeps one hash per conversation: field = user id,
// value = unix ms of the last keystroke. Stale fields are simply skipped at
// read time; no reaper runs.
type RedisTypingTracker struct {
	rdb *redis.Client
}

// NewRedisTypingTracker constructs a RedisTypingTracker.
func NewRedisTypingTracker(rdb *redis.Client) *RedisTypingTracker {
	return &RedisTypingTracker{rdb: rdb}
}

func typingKey(conversationID int) string {
	return "typing:" + strconv.Itoa(conversationID)
}

// SetTyping upserts the caller's signal with a fresh timestamp.
func (t *RedisTypingTracker) SetTyping(ctx context.Context, conversationID, userID int) error {
	return t.rdb.HSet(ctx, typingKey(conversationID), strconv.Itoa(userID), time.Now().UnixMilli()).Err()
}

// ClearTyping removes the caller's signal; clearing an absent signal is a
// no-op.
func (t *RedisTypingTracker) ClearTyping(ctx context.Context, conversationID, userID int) error {
	return t.rdb.HDel(ctx, typingKey(conversationID), strconv.Itoa(userID)).Err()
}

// TypingUserIDs returns the users with an active signal in the conversation,
// excluding the caller.
func (t *RedisTypingTracker) TypingUserIDs(ctx context.Context, conversationID, excludeUserID int) ([]int, error) {
	fields, err := t.rdb.HGetAll(ctx, typingKey(conversationID)).Result()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ids := make([]int, 0, len(fields))
	for field, value := range fields {
		userID, err := strconv.Atoi(field)
		if err != nil || userID == excludeUserID {
			continue
		}
		sentMs, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		if activeTyping(sentMs, now) {
			ids = append(ids, userID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// activeTyping reports whether a keystroke timestamp is still fresh.
func activeTyping(sentMs int64, now time.Time) bool {
	return now.Sub(time.UnixMilli(sentMs)) < typingStaleAfter
}
