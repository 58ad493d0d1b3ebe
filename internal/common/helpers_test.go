package common

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluralizeUsers(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "пользователей"},
		{1, "пользователь"},
		{2, "пользователя"},
		{4, "пользователя"},
		{5, "пользователей"},
		{11, "пользователей"},
		{12, "пользователей"},
		{21, "пользователь"},
		{22, "пользователя"},
		{111, "пользователей"},
		{-1, "пользователь"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, PluralizeUsers(tt.n))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "2 350", FormatNumber(2350))
	assert.Equal(t, "1 000 001", FormatNumber(1000001))
	assert.Equal(t, "-2 350", FormatNumber(-2350))
	assert.Equal(t, "-9 223 372 036 854 775 808", FormatNumber(math.MinInt64))
	assert.Equal(t, "9 223 372 036 854 775 807", FormatNumber(math.MaxInt64))
	assert.Equal(t, "3 пользователя", FormatUsersCount(3))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "150.00", FormatAmount(decimal.NewFromInt(150)))
	assert.Equal(t, "0.50", FormatAmount(decimal.RequireFromString("0.5")))
	assert.Equal(t, "+10.25", FormatSignedAmount(decimal.RequireFromString("10.25")))
	assert.Equal(t, "-3.00", FormatSignedAmount(decimal.NewFromInt(-3)))
}

func TestFormatDateTime(t *testing.T) {
	SetDisplayLocation("UTC")
	defer SetDisplayLocation("Europe/Moscow")

	ts := time.Date(2024, 3, 5, 7, 9, 0, 0, time.UTC)
	assert.Equal(t, "05.03.2024 07:09", FormatDateTime(ts))
	assert.Equal(t, "05.03.2024", FormatDate(ts))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "привет", Truncate("привет", 10))
	assert.Equal(t, "при...", Truncate("привет", 3))
}

func TestMention(t *testing.T) {
	assert.Equal(t, "@alice", Mention("alice", 1))
	assert.Equal(t, "ID: 42", Mention("", 42))
	assert.Equal(t, "—", OrDash(""))
}

func TestParseCallback(t *testing.T) {
	name, n := ParseCallback(PageCallback(3))
	assert.Equal(t, CbAdminUsersPage, name)
	assert.Equal(t, 3, n)

	name, n = ParseCallback(CbBalance)
	assert.Equal(t, CbBalance, name)
	assert.Zero(t, n)

	_, n = ParseCallback("admin_users_page:oops")
	assert.Zero(t, n)
}

func TestAdminUsersKeyboard(t *testing.T) {
	kb := AdminUsersKeyboard(0, true)
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, PageCallback(1), *kb.InlineKeyboard[0][0].CallbackData)

	kb = AdminUsersKeyboard(0, false)
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, CbAdminBackToPanel, *kb.InlineKeyboard[0][0].CallbackData)
}

func TestMainMenuKeyboard(t *testing.T) {
	assert.Len(t, MainMenuKeyboard(false).InlineKeyboard, 2)

	admin := MainMenuKeyboard(true)
	require.Len(t, admin.InlineKeyboard, 3)
	assert.Equal(t, CbAdminPanel, *admin.InlineKeyboard[0][0].CallbackData)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		ok   bool
	}{
		{"wrapped sentinel", fmt.Errorf("user_id=999: %w", ErrUserNotFound), "пользователь не найден", true},
		{"double wrapped", fmt.Errorf("перевод: %w", fmt.Errorf("нужно 150.00, есть 100.00: %w", ErrInsufficientFunds)), "недостаточно средств на счёте", true},
		{"usage hint", Usage("использование: /%s id сумма", "deposit"), "использование: /deposit id сумма", true},
		{"wrapped usage", fmt.Errorf("команда: %w", Usage("использование: /transfer")), "использование: /transfer", true},
		{"not admin", ErrNotAdmin, "", false},
		{"internal", errors.New("connection refused"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := UserMessage(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUsageIsBadArguments(t *testing.T) {
	err := Usage("использование: /transfer")
	assert.ErrorIs(t, err, ErrBadArguments)
	assert.Equal(t, "использование: /transfer", err.Error())
}

func TestKeyedMutex(t *testing.T) {
	km := NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  = map[int64]int{}
		overlap bool
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(key int64) {
			defer wg.Done()
			unlock := km.Lock(key)
			defer unlock()

			mu.Lock()
			active[key]++
			if active[key] > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active[key]--
			mu.Unlock()
		}(int64(i % 3))
	}
	wg.Wait()

	assert.False(t, overlap, "два обработчика одного ключа работали одновременно")
	assert.Zero(t, km.Len())
}
