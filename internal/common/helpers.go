// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм, работа с временем.
package common

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Pluralize выбирает форму слова для числа n по правилам русского языка.
//
// Правила:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
//
// Пример:
//
//	Pluralize(21, "пользователь", "пользователя", "пользователей") → "пользователь"
func Pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeUsers возвращает правильную форму слова «пользователь».
func PluralizeUsers(n int64) string {
	return Pluralize(n, "пользователь", "пользователя", "пользователей")
}

// FormatAmount форматирует сумму с двумя знаками после запятой.
// Пример: FormatAmount(decimal.NewFromInt(150)) → "150.00"
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// FormatSignedAmount добавляет знак «+» к неотрицательным суммам.
//
// Примеры:
//
//	FormatSignedAmount(100)  → "+100.00"
//	FormatSignedAmount(-50)  → "-50.00"
func FormatSignedAmount(amount decimal.Decimal) string {
	if amount.Sign() >= 0 {
		return "+" + FormatAmount(amount)
	}
	return FormatAmount(amount)
}

var displayLocation = loadLocation("Europe/Moscow")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Если не удалось загрузить — используем UTC+3 вручную
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// SetDisplayLocation задаёт часовой пояс для отображения дат.
// Вызывается один раз при старте из конфигурации.
func SetDisplayLocation(name string) {
	displayLocation = loadLocation(name)
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (день.месяц.год часы:минуты).
// Используется для отображения дат транзакций и регистрации.
func FormatDateTime(t time.Time) string {
	return t.In(displayLocation).Format("02.01.2006 15:04")
}

// FormatDate форматирует только дату: "02.01.2006".
func FormatDate(t time.Time) string {
	return t.In(displayLocation).Format("02.01.2006")
}

// Truncate обрезает строку до max символов (не байт), добавляя "...".
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// OrDash возвращает "—" для пустых строк, чтобы в карточках не было дыр.
func OrDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// Mention возвращает @username или «ID: n», если username не задан.
func Mention(username string, userID int64) string {
	if username != "" {
		return "@" + username
	}
	return fmt.Sprintf("ID: %d", userID)
}
