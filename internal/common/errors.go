// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import (
	"errors"
	"fmt"
)

// Ошибки баланса (бонусы, рубли, переводы)
var (
	// ErrInsufficientFunds — на счёте меньше, чем требуется списать
	ErrInsufficientFunds = errors.New("недостаточно средств на счёте")
	// ErrSelfTransfer — попытка перевести средства самому себе
	ErrSelfTransfer = errors.New("нельзя переводить средства самому себе")
	// ErrInvalidAmount — некорректная сумма (ноль, отрицательная, больше двух знаков после запятой)
	ErrInvalidAmount = errors.New("сумма должна быть положительной, не более двух знаков после запятой")
	// ErrUnknownBucket — неизвестный тип баланса
	ErrUnknownBucket = errors.New("неизвестный тип баланса")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки диалога и команд
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав доступа")
	// ErrIllegalTransition — недопустимый переход состояния диалога
	ErrIllegalTransition = errors.New("недопустимый переход состояния")
	// ErrBadArguments — команда вызвана с неверными аргументами
	ErrBadArguments = errors.New("неверные аргументы команды")
)

// Ошибки доставки
var (
	// ErrDeliveryFailed — Telegram не принял сообщение
	ErrDeliveryFailed = errors.New("не удалось доставить сообщение")
)

var domainErrors = []error{
	ErrInsufficientFunds, ErrSelfTransfer, ErrInvalidAmount, ErrUnknownBucket,
	ErrUserNotFound, ErrIllegalTransition, ErrBadArguments,
}

// UsageError — неверные аргументы команды с подсказкой, как её вызвать.
// Подсказка показывается пользователю как есть.
type UsageError struct {
	Hint string
}

// Usage создаёт ошибку с подсказкой по использованию команды.
func Usage(format string, args ...any) error {
	return &UsageError{Hint: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string { return e.Hint }
func (e *UsageError) Unwrap() error { return ErrBadArguments }

// UserMessage возвращает текст для чата: подсказку UsageError или текст
// самой бизнес-ошибки. Обёртки (user_id, username и т.п.) в чат не попадают.
func UserMessage(err error) (string, bool) {
	var usage *UsageError
	if errors.As(err, &usage) {
		return usage.Hint, true
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}
