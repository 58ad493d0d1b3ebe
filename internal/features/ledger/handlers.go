// Package ledger — handlers.go обрабатывает экраны балансов и команды
// /balance, /history, /transfer, а также админские /deposit и /withdraw.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/features/users"
	"zenith.dev/telegram-bot/internal/render"
)

// Resolver находит получателя перевода по ссылке из команды.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*users.User, error)
}

// AdminChecker отвечает, является ли пользователь администратором.
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// Handler обрабатывает экраны и команды балансов.
type Handler struct {
	service   *Service
	resolver  Resolver
	presenter render.Presenter
	admins    AdminChecker
}

// NewHandler создаёт обработчик балансов.
func NewHandler(service *Service, resolver Resolver, presenter render.Presenter, admins AdminChecker) *Handler {
	return &Handler{
		service:   service,
		resolver:  resolver,
		presenter: presenter,
		admins:    admins,
	}
}

// ShowBalance — экран балансов (/balance и кнопка «Баланс»).
func (h *Handler) ShowBalance(ctx context.Context, chatID, userID int64) error {
	balances, err := h.service.Balances(ctx, userID)
	if err != nil {
		return err
	}
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     BalanceText(balances),
		Keyboard: common.BalanceKeyboard(),
	})
}

// ShowHistory — экран последних операций.
func (h *Handler) ShowHistory(ctx context.Context, chatID, userID int64) error {
	history, err := h.service.History(ctx, userID)
	if err != nil {
		return err
	}
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text:     HistoryText(history),
		Keyboard: common.BackToBalanceKeyboard(),
	})
}

// Transfer — команда /transfer <@username|id> <bonus|rubles> <сумма> [описание].
func (h *Handler) Transfer(ctx context.Context, chatID, userID int64, args []string) error {
	if len(args) < 3 {
		return common.Usage("использование: /transfer @username bonus|rubles сумма")
	}
	bucket, amount, err := parseBucketAmount(args[1], args[2])
	if err != nil {
		return err
	}
	recipient, err := h.resolver.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	description := strings.Join(args[3:], " ")

	if err := h.service.Transfer(ctx, userID, recipient.UserID, bucket, amount, description); err != nil {
		return err
	}

	balance, err := h.service.Balance(ctx, userID, bucket)
	if err != nil {
		return err
	}
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text: fmt.Sprintf("✅ Перевод выполнен\n\nПолучатель: %s\nСчёт: %s\nСумма: %s\n\nОстаток: %s",
			recipient.DisplayName(), bucket.Title(), common.FormatAmount(amount), common.FormatAmount(balance)),
		Keyboard: common.BalanceKeyboard(),
	})
}

// AdminDeposit — команда /deposit <id> <bonus|rubles> <сумма>. Только для администраторов.
func (h *Handler) AdminDeposit(ctx context.Context, chatID, userID int64, args []string) error {
	return h.adminOperation(ctx, chatID, userID, args, "deposit", h.service.Deposit)
}

// AdminWithdraw — команда /withdraw <id> <bonus|rubles> <сумма>. Только для администраторов.
func (h *Handler) AdminWithdraw(ctx context.Context, chatID, userID int64, args []string) error {
	return h.adminOperation(ctx, chatID, userID, args, "withdraw", h.service.Withdraw)
}

type operation func(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error)

func (h *Handler) adminOperation(ctx context.Context, chatID, userID int64, args []string, name string, op operation) error {
	if !h.admins.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	if len(args) < 3 {
		return common.Usage("использование: /%s id bonus|rubles сумма", name)
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return common.Usage("id пользователя должен быть числом: /%s id bonus|rubles сумма", name)
	}
	bucket, amount, err := parseBucketAmount(args[1], args[2])
	if err != nil {
		return err
	}

	description := strings.Join(args[3:], " ")
	if description == "" {
		description = fmt.Sprintf("Операция администратора %d", userID)
	}

	balance, err := op(ctx, target, bucket, amount, description)
	if err != nil {
		return err
	}

	title := "✅ Баланс пополнен"
	if name == "withdraw" {
		title = "✅ Средства списаны"
	}
	return h.presenter.Present(ctx, userID, chatID, render.Screen{
		Text: fmt.Sprintf("%s\n\nПользователь: %d\nСчёт: %s\nСумма: %s\n\nНовый остаток: %s",
			title, target, bucket.Title(), common.FormatAmount(amount), common.FormatAmount(balance)),
		Keyboard: common.AdminBackKeyboard(),
	})
}

func parseBucketAmount(bucketArg, amountArg string) (Bucket, decimal.Decimal, error) {
	bucket, err := ParseBucket(bucketArg)
	if err != nil {
		return "", decimal.Zero, err
	}
	amount, err := ParseAmount(amountArg)
	if err != nil {
		return "", decimal.Zero, err
	}
	return bucket, amount, nil
}

// BalanceText — экран балансов.
func BalanceText(b Balances) string {
	var sb strings.Builder
	sb.WriteString("💰 Ваши балансы\n")
	for _, bucket := range Buckets {
		fmt.Fprintf(&sb, "\n%s: %s", bucket.Title(), common.FormatAmount(b.Get(bucket)))
	}
	return sb.String()
}

// HistoryText — экран истории операций.
func HistoryText(history []*Transaction) string {
	if len(history) == 0 {
		return "📜 История операций\n\nОпераций пока нет"
	}

	var sb strings.Builder
	sb.WriteString("📜 История операций\n")
	for _, t := range history {
		fmt.Fprintf(&sb, "\n%s %s %s (%s)",
			common.FormatDateTime(t.CreatedAt), common.FormatSignedAmount(t.Amount), t.Bucket.Title(), t.Kind.Title())
		if t.Description != "" {
			fmt.Fprintf(&sb, "\n   %s", common.Truncate(t.Description, 60))
		}
	}
	return sb.String()
}
