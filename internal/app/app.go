// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"zenith.dev/telegram-bot/internal/bot"
	"zenith.dev/telegram-bot/internal/bot/filters"
	"zenith.dev/telegram-bot/internal/bot/middleware"
	"zenith.dev/telegram-bot/internal/config"
	"zenith.dev/telegram-bot/internal/conversation"
	"zenith.dev/telegram-bot/internal/db/postgres"
	"zenith.dev/telegram-bot/internal/features/admin"
	"zenith.dev/telegram-bot/internal/features/ledger"
	"zenith.dev/telegram-bot/internal/features/users"
	"zenith.dev/telegram-bot/internal/jobs"
	"zenith.dev/telegram-bot/internal/render"
)

// Запас HTTP-таймаута сверх long polling
const pollTimeoutMargin = 15 * time.Second

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := postgres.RunMigrations(cfg.DatabaseDSN()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	client := &http.Client{
		Timeout: time.Duration(cfg.BotUpdateTimeoutSeconds)*time.Second + pollTimeoutMargin,
	}
	botAPI, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.IsDevelopment()
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	userRepo := users.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)

	// === 4. Сервисы ===
	authorizer := admin.NewAuthorizer(cfg.AdminIDs)
	userService := users.NewService(userRepo)
	machine := conversation.NewMachine(userService)
	ledgerService := ledger.NewService(ledgerRepo, userService, cfg.LedgerHistoryLimit)
	adminService := admin.NewService(userService, cfg.AdminUsersPageSize)

	log.WithField("admins", authorizer.Count()).Info("Список администраторов загружен")

	// === 5. Отображение экранов ===
	transport := render.NewTelegramTransport(botAPI)
	tracker := render.NewTracker(transport)

	// === 6. Обработчики ===
	userHandler := users.NewHandler(userService, machine, tracker, authorizer)
	ledgerHandler := ledger.NewHandler(ledgerService, userService, tracker, authorizer)
	adminHandler := admin.NewHandler(adminService, machine, tracker, authorizer, userHandler)

	// === 7. Фильтры и ограничения ===
	chatFilter := filters.NewChatFilter(cfg.BotPrivateOnly)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	// === 8. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		userService, userHandler,
		ledgerHandler,
		adminHandler,
		tracker, transport,
		chatFilter, rateLimiter,
	)

	// === 9. Планировщик задач ===
	scheduler := jobs.NewScheduler(cfg.AppTimezone, rateLimiter, userService)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}
