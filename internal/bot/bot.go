// Package bot содержит главный цикл бота: получение обновлений,
// фильтрацию, маршрутизацию команд и кнопок, обработку ошибок.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"zenith.dev/telegram-bot/internal/bot/filters"
	"zenith.dev/telegram-bot/internal/bot/middleware"
	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/config"
	"zenith.dev/telegram-bot/internal/features/admin"
	"zenith.dev/telegram-bot/internal/features/ledger"
	"zenith.dev/telegram-bot/internal/features/users"
	"zenith.dev/telegram-bot/internal/render"
)

// UpdateSource — источник обновлений (long polling *tgbotapi.BotAPI).
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Notifier отвечает на нажатие кнопки всплывающим уведомлением.
type Notifier interface {
	Notify(ctx context.Context, callbackID, text string) error
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api UpdateSource
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	userService   *users.Service
	userHandler   *users.Handler
	ledgerHandler *ledger.Handler
	adminHandler  *admin.Handler

	presenter render.Presenter
	notifier  Notifier

	parser *CommandParser

	// события одного пользователя обрабатываются строго по очереди
	locks *common.KeyedMutex
	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api UpdateSource,
	cfg *config.Config,
	userService *users.Service,
	userHandler *users.Handler,
	ledgerHandler *ledger.Handler,
	adminHandler *admin.Handler,
	presenter render.Presenter,
	notifier Notifier,
	chatFilter *filters.ChatFilter,
	rateLimiter *middleware.RateLimiter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		chatFilter:    chatFilter,
		rateLimiter:   rateLimiter,
		userService:   userService,
		userHandler:   userHandler,
		ledgerHandler: ledgerHandler,
		adminHandler:  adminHandler,
		presenter:     presenter,
		notifier:      notifier,
		parser:        NewCommandParser(),
		locks:         common.NewKeyedMutex(),
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
// Возвращается после отмены ctx, дождавшись уже начатых обработчиков.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	// Начатые обработчики доживают до своего таймаута, а не обрываются на shutdown
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			log.Info("Все обработчики завершены")
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.wg.Wait()
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer func() {
					<-b.inflight
					b.wg.Done()
				}()
				b.handleUpdate(handlerCtx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	logger := log.WithFields(log.Fields{
		"event_id":  uuid.NewString(),
		"update_id": update.UpdateID,
	})
	defer middleware.RecoverFromPanic(logger)

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, logger, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		b.handleMessage(ctx, logger, update.Message)
	}
}

// handleMessage обрабатывает текстовое сообщение: команду или обычный текст.
func (b *Bot) handleMessage(ctx context.Context, logger *log.Entry, message *tgbotapi.Message) {
	middleware.LogMessage(logger, message)

	if !b.chatFilter.CheckAccess(logger, message.From, message.Chat) {
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	logger = logger.WithFields(log.Fields{"user_id": userID, "chat_id": chatID})

	if !b.rateLimiter.Allow(userID) {
		logger.Debug("rate limited")
		return
	}

	unlock := b.locks.Lock(userID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, b.cfg.BotHandlerTimeout)
	defer cancel()

	// Регистрируем пользователя и читаем актуальное состояние из БД
	state, err := b.userService.Touch(ctx, profileOf(message.From))
	if err != nil {
		b.handleError(ctx, logger, chatID, userID, err, false)
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	logger.WithFields(log.Fields{
		"is_command": isCommand,
		"cmd":        cmd,
		"args":       args,
		"state":      state,
	}).Debug("parsed command")

	if isCommand {
		err = b.routeCommand(ctx, chatID, userID, cmd, args)
	} else {
		err = b.userHandler.FreeText(ctx, chatID, userID, state, message.Text)
	}
	b.handleError(ctx, logger, chatID, userID, err, false)
}

// handleCallback обрабатывает нажатие инлайн-кнопки.
// На каждое нажатие Telegram получает ровно один ответ.
func (b *Bot) handleCallback(ctx context.Context, logger *log.Entry, cb *tgbotapi.CallbackQuery) {
	middleware.LogCallback(logger, cb)

	notice := ""
	answerCtx := ctx
	defer func() {
		if err := b.notifier.Notify(answerCtx, cb.ID, notice); err != nil {
			logger.WithError(err).Debug("callback answer failed")
		}
	}()

	var chat *tgbotapi.Chat
	if cb.Message != nil {
		chat = cb.Message.Chat
	}
	if !b.chatFilter.CheckAccess(logger, cb.From, chat) {
		return
	}

	chatID := chat.ID
	userID := cb.From.ID
	logger = logger.WithFields(log.Fields{"user_id": userID, "chat_id": chatID})

	if !b.rateLimiter.Allow(userID) {
		logger.Debug("rate limited")
		notice = "⏳ Слишком много запросов, подождите немного"
		return
	}

	unlock := b.locks.Lock(userID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, b.cfg.BotHandlerTimeout)
	defer cancel()

	if _, err := b.userService.Touch(ctx, profileOf(cb.From)); err != nil {
		notice = b.handleError(ctx, logger, chatID, userID, err, true)
		return
	}

	err := b.routeCallback(ctx, chatID, userID, cb.Data)
	notice = b.handleError(ctx, logger, chatID, userID, err, true)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) error {
	switch cmd {
	case "start":
		return b.userHandler.Start(ctx, chatID, userID)
	case "help":
		return b.userHandler.Help(ctx, chatID, userID)
	case "info":
		return b.userHandler.Info(ctx, chatID, userID)
	case "cancel":
		return b.userHandler.Cancel(ctx, chatID, userID)

	case "balance":
		return b.ledgerHandler.ShowBalance(ctx, chatID, userID)
	case "history":
		return b.ledgerHandler.ShowHistory(ctx, chatID, userID)
	case "transfer":
		return b.ledgerHandler.Transfer(ctx, chatID, userID, args)

	case "admin":
		return b.adminHandler.EnterPanel(ctx, chatID, userID)
	case "users":
		return b.adminHandler.ShowUsers(ctx, chatID, userID, 0)
	case "stats":
		return b.adminHandler.ShowStats(ctx, chatID, userID)
	case "deposit":
		return b.ledgerHandler.AdminDeposit(ctx, chatID, userID, args)
	case "withdraw":
		return b.ledgerHandler.AdminWithdraw(ctx, chatID, userID, args)

	default:
		return b.presenter.Present(ctx, userID, chatID, render.Screen{
			Text:     "❓ Неизвестная команда. Список команд: /help",
			Keyboard: common.BackToMainKeyboard(),
		})
	}
}

// routeCallback маршрутизирует нажатие кнопки.
func (b *Bot) routeCallback(ctx context.Context, chatID, userID int64, data string) error {
	name, page := common.ParseCallback(data)

	switch name {
	case common.CbBackToMain:
		return b.userHandler.Home(ctx, chatID, userID)
	case common.CbPersonalCabinet, common.CbBackToCabinet:
		return b.userHandler.Cabinet(ctx, chatID, userID)
	case common.CbUserStats:
		return b.userHandler.UserStats(ctx, chatID, userID)
	case common.CbAboutProject:
		return b.userHandler.About(ctx, chatID, userID)

	case common.CbBalance, common.CbBalanceBack:
		return b.ledgerHandler.ShowBalance(ctx, chatID, userID)
	case common.CbBalanceHistory:
		return b.ledgerHandler.ShowHistory(ctx, chatID, userID)

	case common.CbAdminPanel:
		return b.adminHandler.EnterPanel(ctx, chatID, userID)
	case common.CbAdminBackToPanel:
		return b.adminHandler.BackToPanel(ctx, chatID, userID)
	case common.CbAdminAllUsers:
		return b.adminHandler.ShowUsers(ctx, chatID, userID, 0)
	case common.CbAdminUsersPage:
		return b.adminHandler.ShowUsers(ctx, chatID, userID, page)
	case common.CbAdminStats:
		return b.adminHandler.ShowStats(ctx, chatID, userID)
	case common.CbAdminBackToMain:
		return b.adminHandler.Exit(ctx, chatID, userID)

	default:
		log.WithField("data", data).Warn("unknown callback")
		return nil
	}
}

// handleError сообщает пользователю о результате обработки.
// Для кнопок возвращает текст всплывающего уведомления (пустой, если не нужно).
func (b *Bot) handleError(ctx context.Context, logger *log.Entry, chatID, userID int64, err error, callback bool) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, common.ErrNotAdmin) {
		logger.Info("access denied")
		if callback {
			// Экран не трогаем: только уведомление
			return "⛔ " + capitalize(common.ErrNotAdmin.Error())
		}
		b.show(ctx, logger, chatID, userID, "⛔ "+capitalize(common.ErrNotAdmin.Error()))
		return ""
	}

	if errors.Is(err, common.ErrDeliveryFailed) {
		logger.WithError(err).Error("delivery failed")
		return ""
	}

	// В чат идёт только текст бизнес-ошибки, без обёрток с идентификаторами
	if text, ok := common.UserMessage(err); ok {
		logger.WithError(err).Info("request rejected")
		b.show(ctx, logger, chatID, userID, "❌ "+capitalize(text))
		return ""
	}

	logger.WithError(err).Error("handler failed")
	b.show(ctx, logger, chatID, userID, "⚠️ Произошла ошибка. Попробуйте позже.")
	if callback {
		return "⚠️ Произошла ошибка"
	}
	return ""
}

func (b *Bot) show(ctx context.Context, logger *log.Entry, chatID, userID int64, text string) {
	err := b.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     text,
		Keyboard: common.BackToMainKeyboard(),
	})
	if err != nil {
		logger.WithError(err).Error("failed to show error screen")
	}
}

func profileOf(u *tgbotapi.User) users.Profile {
	return users.Profile{
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// CommandParser парсит команды с префиксом /.
// Остальной текст (в том числе ".5 рублей" или "!") считается обычным сообщением.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @botname у команды (/start@zenith_bot) отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
