// Package filters решает, какие события бот вообще обрабатывает.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ChatFilter отсекает служебные сообщения, ботов и (опционально) групповые чаты.
type ChatFilter struct {
	privateOnly bool
}

// NewChatFilter создаёт фильтр. privateOnly — работать только в личных сообщениях.
func NewChatFilter(privateOnly bool) *ChatFilter {
	return &ChatFilter{privateOnly: privateOnly}
}

// CheckAccess проверяет отправителя и чат события.
func (f *ChatFilter) CheckAccess(logger *log.Entry, from *tgbotapi.User, chat *tgbotapi.Chat) bool {
	logger = logger.WithField("component", "ChatFilter")

	if chat == nil {
		logger.Warn("nil chat (inline message?)")
		return false
	}
	if from == nil {
		logger.WithFields(log.Fields{
			"chat_id":   chat.ID,
			"chat_type": chat.Type,
		}).Warn("nil from (service/channel message?)")
		return false
	}

	logger = logger.WithFields(log.Fields{
		"chat_id":   chat.ID,
		"chat_type": chat.Type,
		"user_id":   from.ID,
	})

	if from.IsBot {
		logger.Debug("deny: sender is a bot")
		return false
	}
	if f.privateOnly && !chat.IsPrivate() {
		logger.Debug("deny: not a private chat")
		return false
	}
	return true
}
