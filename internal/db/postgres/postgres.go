// Package postgres управляет подключением к базе данных PostgreSQL.
// Использует пул соединений pgxpool для конкурентной работы
// с ограничением количества подключений.
//
// Пул автоматически управляет открытием/закрытием соединений,
// переиспользует их между запросами и восстанавливает после сбоев.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"zenith.dev/telegram-bot/internal/config"
)

// NewPool создаёт новый пул соединений к PostgreSQL.
//
// Параметры:
//   - ctx: контекст для отмены операции
//   - cfg: конфигурация с параметрами подключения
//
// Пример:
//
//	pool, err := postgres.NewPool(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConns           // максимум соединений
	poolConfig.MinConns = cfg.DBMinConns           // минимум (держим прогретыми)
	poolConfig.MaxConnLifetime = 1 * time.Hour     // время жизни одного соединения
	poolConfig.MaxConnIdleTime = 30 * time.Minute  // время простоя до закрытия
	poolConfig.HealthCheckPeriod = 1 * time.Minute // проверка здоровья соединений

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула: %w", err)
	}

	// Проверяем, что база отвечает
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	log.WithFields(log.Fields{
		"host":      cfg.DBHost,
		"db":        cfg.DBName,
		"max_conns": cfg.DBMaxConns,
	}).Info("Подключение к PostgreSQL установлено")
	return pool, nil
}
