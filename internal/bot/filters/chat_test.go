package filters

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestCheckAccess(t *testing.T) {
	logger := log.NewEntry(log.StandardLogger())
	private := &tgbotapi.Chat{ID: 1, Type: "private"}
	group := &tgbotapi.Chat{ID: -100, Type: "supergroup"}
	human := &tgbotapi.User{ID: 1}
	robot := &tgbotapi.User{ID: 2, IsBot: true}

	tests := []struct {
		name        string
		privateOnly bool
		from        *tgbotapi.User
		chat        *tgbotapi.Chat
		want        bool
	}{
		{name: "private human", privateOnly: true, from: human, chat: private, want: true},
		{name: "nil sender", privateOnly: true, from: nil, chat: private, want: false},
		{name: "nil chat", privateOnly: true, from: human, chat: nil, want: false},
		{name: "bot sender", privateOnly: false, from: robot, chat: private, want: false},
		{name: "group when private only", privateOnly: true, from: human, chat: group, want: false},
		{name: "group allowed", privateOnly: false, from: human, chat: group, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewChatFilter(tt.privateOnly).CheckAccess(logger, tt.from, tt.chat)
			assert.Equal(t, tt.want, got)
		})
	}
}
