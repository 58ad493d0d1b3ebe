// Package users — handlers.go показывает пользовательские экраны:
// главное меню, помощь, профиль, личный кабинет, статистику.
package users

import (
	"context"
	"fmt"
	"strings"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/conversation"
	"zenith.dev/telegram-bot/internal/render"
)

// AdminChecker отвечает, является ли пользователь администратором.
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// Handler обрабатывает команды и кнопки пользовательской части бота.
type Handler struct {
	service   *Service
	machine   *conversation.Machine
	presenter render.Presenter
	admins    AdminChecker
}

// NewHandler создаёт обработчик пользовательских экранов.
func NewHandler(service *Service, machine *conversation.Machine, presenter render.Presenter, admins AdminChecker) *Handler {
	return &Handler{
		service:   service,
		machine:   machine,
		presenter: presenter,
		admins:    admins,
	}
}

// Start — команда /start: начинаем с нового сообщения и показываем главное меню.
func (h *Handler) Start(ctx context.Context, chatID, userID int64) error {
	h.presenter.Clear(userID)
	return h.Home(ctx, chatID, userID)
}

// Home показывает главное меню.
func (h *Handler) Home(ctx context.Context, chatID, userID int64) error {
	u, err := h.service.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	count, err := h.service.Count(ctx)
	if err != nil {
		return err
	}

	isAdmin := h.admins.IsAdmin(userID)
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     WelcomeText(u.FirstName, count, isAdmin),
		Keyboard: common.MainMenuKeyboard(isAdmin),
	})
}

// Help — команда /help.
func (h *Handler) Help(ctx context.Context, chatID, userID int64) error {
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     HelpText(h.admins.IsAdmin(userID)),
		Keyboard: common.BackToMainKeyboard(),
	})
}

// Info — команда /info: данные пользователя из БД.
func (h *Handler) Info(ctx context.Context, chatID, userID int64) error {
	u, err := h.service.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("📊 Информация о вас:\n\n")
	writeProfile(&sb, u)
	if h.admins.IsAdmin(userID) {
		sb.WriteString("\n⭐ Статус: Администратор бота")
	}

	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     sb.String(),
		Keyboard: common.BackToMainKeyboard(),
	})
}

// Cabinet показывает личный кабинет.
func (h *Handler) Cabinet(ctx context.Context, chatID, userID int64) error {
	u, err := h.service.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("👤 Личный кабинет\n\n📋 Ваши данные:\n")
	writeProfile(&sb, u)
	if h.admins.IsAdmin(userID) {
		sb.WriteString("\n⭐ Статус: Администратор бота")
	}

	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     sb.String(),
		Keyboard: common.CabinetKeyboard(),
	})
}

// UserStats показывает общую статистику бота из личного кабинета.
func (h *Handler) UserStats(ctx context.Context, chatID, userID int64) error {
	stats, err := h.service.Stats(ctx)
	if err != nil {
		return err
	}
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     StatsText("📊 Статистика", stats, false),
		Keyboard: common.BackToCabinetKeyboard(),
	})
}

// About — экран «О проекте».
func (h *Handler) About(ctx context.Context, chatID, userID int64) error {
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     "ℹ️ О проекте\n\nZenith — бот-помощник с личным кабинетом и балансами.",
		Keyboard: common.BackToMainKeyboard(),
	})
}

// Cancel — команда /cancel: из любого режима возвращаемся в главное меню.
func (h *Handler) Cancel(ctx context.Context, chatID, userID int64) error {
	if _, err := h.machine.Transition(ctx, userID, conversation.StateMain); err != nil {
		return err
	}
	return h.Home(ctx, chatID, userID)
}

// FreeText отвечает на обычный текст: в главном меню повторяет его,
// в остальных режимах подсказывает пользоваться кнопками.
func (h *Handler) FreeText(ctx context.Context, chatID, userID int64, state conversation.State, text string) error {
	screen := render.Screen{Text: "ℹ️ Используйте доступные команды или кнопки"}
	if state == conversation.StateMain {
		screen = render.Screen{
			Text:     "Вы сказали: " + text,
			Keyboard: common.BackToMainKeyboard(),
		}
	}
	return h.presenter.Present(ctx, userID, chatID, screen)
}

func writeProfile(sb *strings.Builder, u *User) {
	fmt.Fprintf(sb, "ID: %d\n", u.UserID)
	fmt.Fprintf(sb, "Имя: %s\n", common.OrDash(u.FirstName))
	fmt.Fprintf(sb, "Фамилия: %s\n", orText(u.LastName, "Не указана"))
	fmt.Fprintf(sb, "Username: %s\n", orText(atUsername(u.Username), "Не указан"))
	fmt.Fprintf(sb, "Состояние: %s\n", u.State.Title())
	fmt.Fprintf(sb, "Зарегистрирован: %s\n", common.FormatDateTime(u.CreatedAt))
}

func orText(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func atUsername(username string) string {
	if username == "" {
		return ""
	}
	return "@" + username
}

// WelcomeText — текст главного меню.
func WelcomeText(firstName string, usersCount int64, isAdmin bool) string {
	if firstName == "" {
		firstName = "друг"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🌟 Здравствуйте, %s!\n", firstName)
	sb.WriteString("Я Zenith - ваш надежный помощник в решении различных задач.\n\n")
	sb.WriteString("🚀 Чем могу помочь:\n")
	sb.WriteString("• Личный кабинет и балансы\n")
	sb.WriteString("• Переводы между пользователями\n")
	sb.WriteString("• Статистика и аналитика\n\n")
	fmt.Fprintf(&sb, "📊 Всего пользователей доверяют мне: %s\n\n", common.FormatNumber(usersCount))
	sb.WriteString("💡 Используйте кнопки ниже для взаимодействия!")
	if isAdmin {
		sb.WriteString("\n\n⚡ Вы являетесь администратором! Доступны дополнительные команды через /admin")
	}
	return sb.String()
}

// HelpText — текст команды /help.
func HelpText(isAdmin bool) string {
	text := "🤖 Zenith - универсальный помощник\n\n" +
		"⌨️ Основные команды:\n" +
		"/start - начать работу\n" +
		"/help - помощь и возможности\n" +
		"/info - ваши данные\n" +
		"/balance - ваши балансы\n" +
		"/history - история операций\n" +
		"/transfer @username bonus|rubles сумма - перевод\n" +
		"/cancel - вернуться в главное меню\n\n" +
		"🎛️ Или используйте инлайн кнопки!"

	if isAdmin {
		text += "\n\n🛠️ Админ команды:\n" +
			"/admin - панель управления\n" +
			"/users - список пользователей\n" +
			"/stats - детальная статистика\n" +
			"/deposit id bonus|rubles сумма - пополнить баланс\n" +
			"/withdraw id bonus|rubles сумма - списать с баланса"
	}
	return text
}

// StatsText собирает экран статистики. withLast добавляет дату последней регистрации.
func StatsText(title string, stats *Stats, withLast bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n👥 Всего пользователей: %s", title, common.FormatNumber(stats.Total))

	if withLast && len(stats.Latest) > 0 {
		fmt.Fprintf(&sb, "\n📅 Последняя регистрация: %s", common.FormatDateTime(stats.Latest[0].CreatedAt))
	}

	if len(stats.ByState) > 0 {
		sb.WriteString("\n\n📊 Распределение по состояниям:")
		for _, st := range []conversation.State{
			conversation.StateMain, conversation.StateAdmin, conversation.StateAwaitingInput,
		} {
			if n, ok := stats.ByState[st]; ok {
				fmt.Fprintf(&sb, "\n• %s: %s", st.Title(), common.FormatUsersCount(n))
			}
		}
	}

	if len(stats.Latest) > 0 {
		fmt.Fprintf(&sb, "\n\n📈 Последние %d:", len(stats.Latest))
		for i, u := range stats.Latest {
			fmt.Fprintf(&sb, "\n%d. %s (%s) - %s",
				i+1, common.OrDash(u.FirstName), orText(atUsername(u.Username), "нет username"), u.State.Title())
		}
	}
	return sb.String()
}
