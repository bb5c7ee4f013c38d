package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveOnlineFreshHeartbeat(t *testing.T) {
	now := time.Now()
	lastSeen := now.Add(-10 * time.Second).UnixMilli()
	assert.True(t, effectiveOnline(true, lastSeen, now))
}

func TestEffectiveOnlineStaleHeartbeat(t *testing.T) {
	now := time.Now()
	lastSeen := now.Add(-61 * time.Second).UnixMilli()
	assert.False(t, effectiveOnline(true, lastSeen, now))
}

func TestEffectiveOnlineOfflineIntentWins(t *testing.T) {
	now := time.Now()
	assert.False(t, effectiveOnline(false, now.UnixMilli(), now))
}

func TestEffectiveOnlineExactThresholdIsStale(t *testing.T) {
	now := time.Now()
	lastSeen := now.Add(-staleAfter).UnixMilli()
	assert.False(t, effectiveOnline(true, lastSeen, now))
}

func TestActiveTyping(t *testing.T) {
	now := time.Now()

	assert.True(t, activeTyping(now.Add(-time.Second).UnixMilli(), now))
	assert.False(t, activeTyping(now.Add(-4*time.Second).UnixMilli(), now))
	assert.False(t, activeTyping(now.Add(-typingStaleAfter).UnixMilli(), now))
}
