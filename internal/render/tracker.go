// Package render показывает пользователю экраны бота.
// У каждого пользователя одно «живое» сообщение: новый экран по возможности
// редактирует его, а не присылает новое.
package render

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"zenith.dev/telegram-bot/internal/common"
)

// Handle — адрес сообщения в Telegram.
type Handle struct {
	ChatID    int64
	MessageID int
}

// Screen — текст и клавиатура (может быть nil).
type Screen struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

// Transport отправляет, редактирует и удаляет сообщения.
type Transport interface {
	Send(ctx context.Context, chatID int64, screen Screen) (Handle, error)
	Edit(ctx context.Context, h Handle, screen Screen) (Handle, error)
	Delete(ctx context.Context, h Handle) error
}

// Presenter — то, чем обработчики показывают экраны.
type Presenter interface {
	Present(ctx context.Context, userID, chatID int64, screen Screen) error
	Clear(userID int64)
}

// Tracker помнит живое сообщение каждого пользователя.
// Хэндлы хранятся только в памяти и теряются при рестарте.
type Tracker struct {
	transport Transport
	locks     *common.KeyedMutex

	mu      sync.Mutex
	handles map[int64]Handle
}

// NewTracker создаёт трекер поверх транспорта.
func NewTracker(transport Transport) *Tracker {
	return &Tracker{
		transport: transport,
		locks:     common.NewKeyedMutex(),
		handles:   make(map[int64]Handle),
	}
}

// Present показывает экран пользователю.
//
// Порядок:
//  1. есть живое сообщение в этом чате → редактируем его;
//  2. редактирование не удалось → забываем хэндл, пробуем удалить старое
//     сообщение (ошибки игнорируем) и только потом отправляем новое;
//  3. живого сообщения нет → отправляем новое.
//
// Если отправить не удалось, хэндла у пользователя не остаётся,
// а ошибка оборачивает common.ErrDeliveryFailed.
func (t *Tracker) Present(ctx context.Context, userID, chatID int64, screen Screen) error {
	unlock := t.locks.Lock(userID)
	defer unlock()

	logger := log.WithFields(log.Fields{
		"component": "render",
		"user_id":   userID,
		"chat_id":   chatID,
	})

	if h, ok := t.get(userID); ok {
		if h.ChatID != chatID {
			// Старое сообщение в другом чате: не трогаем его, начинаем заново здесь
			logger.WithField("old_chat_id", h.ChatID).Debug("handle belongs to another chat, dropping")
			t.drop(userID)
		} else {
			edited, err := t.transport.Edit(ctx, h, screen)
			if err == nil {
				t.set(userID, edited)
				return nil
			}

			logger.WithError(err).WithField("message_id", h.MessageID).Debug("edit failed, replacing message")
			t.drop(userID)
			if delErr := t.transport.Delete(ctx, h); delErr != nil {
				logger.WithError(delErr).WithField("message_id", h.MessageID).Debug("delete of stale message failed")
			}
		}
	}

	sent, err := t.transport.Send(ctx, chatID, screen)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrDeliveryFailed, err)
	}
	t.set(userID, sent)
	return nil
}

// Clear забывает живое сообщение пользователя. В Telegram ничего не отправляется:
// следующий Present пришлёт новое сообщение.
func (t *Tracker) Clear(userID int64) {
	unlock := t.locks.Lock(userID)
	defer unlock()
	t.drop(userID)
}

// Handle возвращает текущее живое сообщение пользователя.
func (t *Tracker) Handle(userID int64) (Handle, bool) {
	return t.get(userID)
}

func (t *Tracker) get(userID int64) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[userID]
	return h, ok
}

func (t *Tracker) set(userID int64, h Handle) {
	t.mu.Lock()
	t.handles[userID] = h
	t.mu.Unlock()
}

func (t *Tracker) drop(userID int64) {
	t.mu.Lock()
	delete(t.handles, userID)
	t.mu.Unlock()
}
