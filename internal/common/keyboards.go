// Package common — keyboards.go собирает инлайн-клавиатуры экранов бота
// и хранит значения callback_data, на которые реагирует роутер.
package common

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Значения callback_data инлайн-кнопок
const (
	CbPersonalCabinet = "personal_cabinet"
	CbUserStats       = "user_stats"
	CbAboutProject    = "about_project"
	CbBackToMain      = "back_to_main"
	CbBackToCabinet   = "back_to_cabinet"

	CbBalance        = "balance"
	CbBalanceHistory = "balance_history"
	CbBalanceBack    = "balance_back"

	CbAdminPanel       = "admin_panel"
	CbAdminAllUsers    = "admin_all_users"
	CbAdminUsersPage   = "admin_users_page"
	CbAdminStats       = "admin_stats"
	CbAdminBackToMain  = "admin_back_to_main"
	CbAdminBackToPanel = "admin_back_to_main_menu"
)

// PageCallback возвращает callback_data для страницы списка пользователей.
func PageCallback(page int) string {
	return fmt.Sprintf("%s:%d", CbAdminUsersPage, page)
}

// ParseCallback разбирает "name:arg" на имя и числовой аргумент.
// Если аргумента нет или он не число — возвращается 0.
func ParseCallback(data string) (string, int) {
	name, arg, found := strings.Cut(data, ":")
	if !found {
		return data, 0
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return name, 0
	}
	return name, n
}

func row(text, data string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, data))
}

func markup(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// MainMenuKeyboard — главное меню. Кнопка админ-панели только для админов.
func MainMenuKeyboard(isAdmin bool) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if isAdmin {
		rows = append(rows, row("🛠️ Админ панель", CbAdminPanel))
	}
	rows = append(rows,
		row("👤 Личный кабинет", CbPersonalCabinet),
		row("ℹ️ О проекте", CbAboutProject),
	)
	return markup(rows...)
}

// CabinetKeyboard — личный кабинет.
func CabinetKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		row("💰 Баланс", CbBalance),
		row("📊 Статистика", CbUserStats),
		row("🔙 Назад", CbBackToMain),
	)
}

// BackToMainKeyboard — одна кнопка «Назад» в главное меню.
func BackToMainKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(row("🔙 Назад", CbBackToMain))
}

// BackToCabinetKeyboard — одна кнопка «Назад» в личный кабинет.
func BackToCabinetKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(row("🔙 Назад", CbBackToCabinet))
}

// BalanceKeyboard — экран баланса.
func BalanceKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		row("📊 История операций", CbBalanceHistory),
		row("🔙 Назад", CbBackToCabinet),
	)
}

// BackToBalanceKeyboard — возврат из истории операций.
func BackToBalanceKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(row("🔙 Назад", CbBalanceBack))
}

// AdminMenuKeyboard — главное меню админ-панели.
func AdminMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(
		row("👥 Все пользователи", CbAdminAllUsers),
		row("📊 Статистика админа", CbAdminStats),
		row("🔙 Основное меню", CbAdminBackToMain),
	)
}

// AdminBackKeyboard — возврат в админ-панель.
func AdminBackKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return markup(row("🔙 Назад в админку", CbAdminBackToPanel))
}

// AdminUsersKeyboard — навигация по страницам списка пользователей.
// page считается с нуля; hasNext сообщает, есть ли следующая страница.
func AdminUsersKeyboard(page int, hasNext bool) *tgbotapi.InlineKeyboardMarkup {
	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️", PageCallback(page-1)))
	}
	if hasNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶️", PageCallback(page+1)))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, row("🔙 Назад в админку", CbAdminBackToPanel))
	return markup(rows...)
}
