package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenith.dev/telegram-bot/internal/conversation"
	"zenith.dev/telegram-bot/internal/features/users"
)

type countingPruner struct {
	calls int
	idle  time.Duration
}

func (p *countingPruner) Prune(idle time.Duration) int {
	p.calls++
	p.idle = idle
	return 3
}

type staticStats struct {
	stats *users.Stats
	err   error
}

func (s staticStats) Stats(context.Context) (*users.Stats, error) {
	return s.stats, s.err
}

func TestStartRegistersJobs(t *testing.T) {
	s := NewScheduler("Europe/Moscow", &countingPruner{}, staticStats{})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 2)
}

func TestUnknownTimezoneFallsBack(t *testing.T) {
	s := NewScheduler("Mars/Olympus", &countingPruner{}, staticStats{})
	assert.NotNil(t, s.cron.Location())
}

func TestPruneLimiter(t *testing.T) {
	p := &countingPruner{}
	s := NewScheduler("UTC", p, staticStats{})

	s.pruneLimiter()
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, limiterIdle, p.idle)
}

func TestLogStats(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	s := NewScheduler("UTC", &countingPruner{}, staticStats{stats: &users.Stats{
		Total:   5,
		ByState: map[conversation.State]int64{conversation.StateMain: 4, conversation.StateAdmin: 1},
	}})
	s.logStats(context.Background())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.InfoLevel, entry.Level)
	assert.Equal(t, int64(5), entry.Data["total"])
	assert.Equal(t, int64(4), entry.Data["state_main"])
}

func TestLogStatsError(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	s := NewScheduler("UTC", &countingPruner{}, staticStats{err: errors.New("db down")})
	s.logStats(context.Background())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.ErrorLevel, entry.Level)
}
