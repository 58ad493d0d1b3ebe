// Package admin — handlers.go обрабатывает команды и кнопки админ-панели.
// Права проверяются при каждом вызове, а не один раз при входе.
// Поток: проверка прав → смена состояния (сохраняется в БД) → показ экрана.
package admin

import (
	"context"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/conversation"
	"zenith.dev/telegram-bot/internal/render"
)

// HomeScreen показывает главное меню пользователя.
type HomeScreen interface {
	Home(ctx context.Context, chatID, userID int64) error
}

// Handler обрабатывает админ-команды.
type Handler struct {
	service   *Service
	machine   *conversation.Machine
	presenter render.Presenter
	admins    *Authorizer
	home      HomeScreen
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, machine *conversation.Machine, presenter render.Presenter, admins *Authorizer, home HomeScreen) *Handler {
	return &Handler{
		service:   service,
		machine:   machine,
		presenter: presenter,
		admins:    admins,
		home:      home,
	}
}

// EnterPanel — /admin и кнопка «Админ панель».
// Состояние ADMIN сохраняется до того, как показан экран.
func (h *Handler) EnterPanel(ctx context.Context, chatID, userID int64) error {
	if !h.admins.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	if _, err := h.machine.Transition(ctx, userID, conversation.StateAdmin); err != nil {
		return err
	}
	return h.showPanel(ctx, chatID, userID)
}

// BackToPanel — возврат из подэкрана в админ-панель.
func (h *Handler) BackToPanel(ctx context.Context, chatID, userID int64) error {
	return h.EnterPanel(ctx, chatID, userID)
}

// Exit — выход из админ-панели в главное меню.
// Живое сообщение сбрасывается: главное меню приходит новым сообщением.
func (h *Handler) Exit(ctx context.Context, chatID, userID int64) error {
	if !h.admins.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	if _, err := h.machine.Transition(ctx, userID, conversation.StateMain); err != nil {
		return err
	}
	h.presenter.Clear(userID)
	return h.home.Home(ctx, chatID, userID)
}

// ShowUsers — страница списка пользователей (/users, «Все пользователи», листание).
func (h *Handler) ShowUsers(ctx context.Context, chatID, userID int64, page int) error {
	if !h.admins.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	text, hasNext, err := h.service.UsersPage(ctx, page)
	if err != nil {
		return err
	}
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     text,
		Keyboard: common.AdminUsersKeyboard(max(page, 0), hasNext),
	})
}

// ShowStats — детальная статистика (/stats и кнопка «Статистика»).
func (h *Handler) ShowStats(ctx context.Context, chatID, userID int64) error {
	if !h.admins.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	text, err := h.service.Stats(ctx)
	if err != nil {
		return err
	}
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     text,
		Keyboard: common.AdminBackKeyboard(),
	})
}

func (h *Handler) showPanel(ctx context.Context, chatID, userID int64) error {
	text, err := h.service.PanelText(ctx)
	if err != nil {
		return err
	}
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     text,
		Keyboard: common.AdminMenuKeyboard(),
	})
}
