// Package users управляет пользователями бота: регистрацией, профилем, состоянием диалога.
// models.go описывает структуры данных для работы с таблицей users.
package users

import (
	"time"

	"zenith.dev/telegram-bot/internal/conversation"
)

// User представляет пользователя бота в базе данных.
// Запись создаётся при первом же событии от пользователя.
type User struct {
	UserID    int64              `db:"user_id"`    // Telegram user ID
	FirstName string             `db:"first_name"` // Имя пользователя
	LastName  string             `db:"last_name"`  // Фамилия (может быть пустой)
	Username  string             `db:"username"`   // @username без @ (может быть пустым)
	State     conversation.State `db:"state"`      // Текущее состояние диалога
	CreatedAt time.Time          `db:"created_at"` // Когда зарегистрирован
	UpdatedAt time.Time          `db:"updated_at"` // Последнее обновление записи
}

// Profile — данные пользователя, пришедшие из Telegram вместе с событием.
type Profile struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — имя + фамилию.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

// Stats — сводка по пользователям для экранов статистики.
type Stats struct {
	Total   int64
	ByState map[conversation.State]int64
	Latest  []*User // последние зарегистрированные, новые первыми
}
