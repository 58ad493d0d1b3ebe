package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations применяет все up-миграции из встроенной папки migrations/.
// Повторный запуск безопасен: уже применённые версии пропускаются.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка чтения миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.WithFields(log.Fields{
				"source_err": srcErr,
				"db_err":     dbErr,
			}).Warn("Ошибка закрытия мигратора")
		}
	}()

	fromVer, _, _ := m.Version()

	start := time.Now()
	err = m.Up()
	took := time.Since(start)

	switch {
	case err == nil:
	case errors.Is(err, migrate.ErrNoChange):
		log.WithField("version", fromVer).Info("Миграции: схема актуальна")
		return nil
	default:
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	toVer, dirty, _ := m.Version()
	log.WithFields(log.Fields{
		"from_ver": fromVer,
		"to_ver":   toVer,
		"dirty":    dirty,
		"took":     took.Round(time.Millisecond),
	}).Info("Миграции применены")
	return nil
}

// migrateURL переводит postgres:// DSN на схему драйвера pgx/v5 для golang-migrate.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
