package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// staleAfter is the crash-tolerance margin: a client that vanishes without
// signaling offline stays visible for one window, then degrades as
// heartbeats stop. No job expires rows; every reader applies the window.
const staleAfter = 60 * time.Second

// Tracker records per-user online intent and heartbeat freshness.
type Tracker interface {
	SetOnline(ctx context.Context, userID int) error
	SetOffline(ctx context.Context, userID int) error
	Heartbeat(ctx context.Context, userID int) error
	Snapshot(ctx context.Context) (map[int]bool, error)
}

// RedisTracker keeps one hash per user (online flag + last_seen unix ms) and
// a set of known user ids.
type RedisTracker struct {
	rdb *redis.Client
}

// NewRedisTracker constructs a RedisTracker.
func NewRedisTracker(rdb *redis.Client) *RedisTracker {
	return &RedisTracker{rdb: rdb}
}

const usersKey = "presence:users"

func userKey(userID int) string {
	return "presence:" + strconv.Itoa(userID)
}

func (t *RedisTracker) set(ctx context.Context, userID int, online bool) error {
	flag := "0"
	if online {
		flag = "1"
	}
	pipe := t.rdb.TxPipeline()
	pipe.HSet(ctx, userKey(userID), "online", flag, "last_seen", time.Now().UnixMilli())
	pipe.SAdd(ctx, usersKey, userID)
	_, err := pipe.Exec(ctx)
	return err
}

// SetOnline upserts the user's row with online intent and a fresh heartbeat.
func (t *RedisTracker) SetOnline(ctx context.Context, userID int) error {
	return t.set(ctx, userID, true)
}

// SetOffline upserts the row with offline intent. The row is kept; last_seen
// still refreshes so "went offline just now" is distinguishable from stale.
func (t *RedisTracker) SetOffline(ctx context.Context, userID int) error {
	return t.set(ctx, userID, false)
}

// Heartbeat refreshes last_seen only when a row already exists. It never
// creates a row and never flips the intent flag.
func (t *RedisTracker) Heartbeat(ctx context.Context, userID int) error {
	exists, err := t.rdb.Exists(ctx, userKey(userID)).Result()
	if err != nil || exists == 0 {
		return err
	}
	return t.rdb.HSet(ctx, userKey(userID), "last_seen", time.Now().UnixMilli()).Err()
}

// Snapshot reports, for every user with a row, whether they are effectively
// online: intent set and heartbeat fresher than the staleness window.
func (t *RedisTracker) Snapshot(ctx context.Context) (map[int]bool, error) {
	ids, err := t.rdb.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, err
	}

	pipe := t.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, "presence:"+id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	result := make(map[int]bool, len(ids))
	for i, id := range ids {
		userID, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		fields := cmds[i].Val()
		lastSeen, _ := strconv.ParseInt(fields["last_seen"], 10, 64)
		result[userID] = effectiveOnline(fields["online"] == "1", lastSeen, now)
	}
	return result, nil
}

// effectiveOnline combines the intent flag with heartbeat freshness.
func effectiveOnline(online bool, lastSeenMs int64, now time.Time) bool {
	if !online {
		return false
	}
	return now.Sub(time.UnixMilli(lastSeenMs)) < staleAfter
}
