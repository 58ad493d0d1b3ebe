package render

import (
	"context"
	"errors"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// BotAPI — часть *tgbotapi.BotAPI, которая нужна транспорту.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// TelegramTransport — Transport поверх Telegram Bot API.
type TelegramTransport struct {
	api BotAPI
}

// NewTelegramTransport создаёт транспорт.
func NewTelegramTransport(api BotAPI) *TelegramTransport {
	return &TelegramTransport{api: api}
}

// Send отправляет новое сообщение.
func (t *TelegramTransport) Send(ctx context.Context, chatID int64, screen Screen) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	msg := tgbotapi.NewMessage(chatID, screen.Text)
	if screen.Keyboard != nil {
		msg.ReplyMarkup = *screen.Keyboard
	}

	sent, err := t.api.Send(msg)
	if err != nil {
		return Handle{}, sanitize(err)
	}
	return Handle{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// Edit заменяет текст и клавиатуру сообщения.
// Ответ Telegram «message is not modified» считается успехом: на экране уже нужный текст.
func (t *TelegramTransport) Edit(ctx context.Context, h Handle, screen Screen) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	edit := tgbotapi.NewEditMessageText(h.ChatID, h.MessageID, screen.Text)
	edit.ReplyMarkup = screen.Keyboard

	if _, err := t.api.Send(edit); err != nil {
		if isNotModified(err) {
			return h, nil
		}
		return Handle{}, sanitize(err)
	}
	return h, nil
}

// Delete удаляет сообщение.
func (t *TelegramTransport) Delete(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(h.ChatID, h.MessageID)); err != nil {
		return sanitize(err)
	}
	return nil
}

// Notify отвечает на нажатие инлайн-кнопки. Непустой text показывается
// пользователю всплывающим уведомлением.
func (t *TelegramTransport) Notify(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		err = sanitize(err)
		log.WithError(err).WithField("callback_id", callbackID).Debug("answer callback failed")
		return err
	}
	return nil
}

func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified")
}

// sanitize убирает токен бота из текста ошибки (он попадает туда из URL запроса).
func sanitize(err error) error {
	msg := err.Error()
	clean := tokenRe.ReplaceAllString(msg, "bot<redacted>")
	if clean == msg {
		return err
	}
	return &redactedError{msg: clean, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
