// Package common — pluralize.go содержит вспомогательные функции
// для форматирования счётчиков в статистике.
// Основная логика плюрализации реализована в helpers.go.
package common

import "fmt"

// FormatUsersCount создаёт строку вида "21 пользователь".
//
// Примеры:
//
//	FormatUsersCount(1)  → "1 пользователь"
//	FormatUsersCount(3)  → "3 пользователя"
//	FormatUsersCount(11) → "11 пользователей"
func FormatUsersCount(n int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(n), PluralizeUsers(n))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		// -(n+1)+1 не переполняется и для math.MinInt64
		return "-" + formatUnsigned(uint64(-(n+1))+1)
	}
	return formatUnsigned(uint64(n))
}

func formatUnsigned(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Рекурсивно добавляем разделители
	return fmt.Sprintf("%s %03d", formatUnsigned(n/1000), n%1000)
}
