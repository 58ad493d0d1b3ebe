package middleware

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allowAt(1, now), "request %d", i)
	}
	assert.False(t, rl.allowAt(1, now))

	// другой пользователь не затронут
	assert.True(t, rl.allowAt(2, now))

	// через window/limit восстанавливается один токен
	assert.True(t, rl.allowAt(1, now.Add(20*time.Second)))
	assert.False(t, rl.allowAt(1, now.Add(20*time.Second)))
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	now := time.Now()

	rl.allowAt(1, now.Add(-time.Hour))
	rl.allowAt(2, now)
	require.Equal(t, 2, rl.Len())

	assert.Equal(t, 1, rl.pruneAt(now, 10*time.Minute))
	assert.Equal(t, 1, rl.Len())
}

func TestRecoverFromPanic(t *testing.T) {
	logger, hook := test.NewNullLogger()

	assert.NotPanics(t, func() {
		defer RecoverFromPanic(log.NewEntry(logger).WithField("event_id", "e1"))
		panic("boom")
	})

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, log.ErrorLevel, entry.Level)
	assert.Equal(t, "boom", entry.Data["panic"])
	assert.Equal(t, "e1", entry.Data["event_id"])
}
