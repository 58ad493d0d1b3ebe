// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: очистка rate limiter
// и ежечасная сводка по пользователям в лог.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"zenith.dev/telegram-bot/internal/features/users"
)

// Сколько пользователь должен молчать, чтобы его лимитер удалили
const limiterIdle = 30 * time.Minute

// Pruner — то, что умеет забывать неактивных пользователей.
type Pruner interface {
	Prune(idle time.Duration) int
}

// StatsSource отдаёт сводку по пользователям.
type StatsSource interface {
	Stats(ctx context.Context) (*users.Stats, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron    *cron.Cron
	limiter Pruner
	stats   StatsSource
}

// NewScheduler создаёт планировщик задач в часовом поясе timezone.
func NewScheduler(timezone string, limiter Pruner, stats StatsSource) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC+3", timezone)
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		limiter: limiter,
		stats:   stats,
	}
}

// Start регистрирует и запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	// Очистка rate limiter каждые 10 минут
	if _, err := s.cron.AddFunc("*/10 * * * *", s.pruneLimiter); err != nil {
		return err
	}

	// Сводка по пользователям каждый час
	if _, err := s.cron.AddFunc("0 * * * *", func() { s.logStats(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) pruneLimiter() {
	removed := s.limiter.Prune(limiterIdle)
	log.WithField("removed", removed).Debug("[CRON] Очистка rate limiter")
}

func (s *Scheduler) logStats(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stats, err := s.stats.Stats(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сбора статистики")
		return
	}

	fields := log.Fields{"total": stats.Total}
	for state, n := range stats.ByState {
		fields["state_"+string(state)] = n
	}
	log.WithFields(fields).Info("[CRON] Статистика пользователей")
}
