// Package ledger ведёт балансы пользователей (бонусы и рубли) и журнал операций.
// models.go описывает структуры для балансов и транзакций.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"zenith.dev/telegram-bot/internal/common"
)

// Bucket — тип баланса. У каждого пользователя по одному счёту каждого типа.
type Bucket string

const (
	BucketBonus  Bucket = "bonus"
	BucketRubles Bucket = "rubles"
)

// Buckets — все типы балансов в порядке отображения.
var Buckets = []Bucket{BucketBonus, BucketRubles}

// ParseBucket принимает название счёта из команды, в том числе по-русски.
func ParseBucket(s string) (Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bonus", "bonuses", "бонус", "бонусы":
		return BucketBonus, nil
	case "rubles", "rub", "рубли", "руб":
		return BucketRubles, nil
	default:
		return "", fmt.Errorf("%q: %w", s, common.ErrUnknownBucket)
	}
}

// Title — название счёта для экранов.
func (b Bucket) Title() string {
	switch b {
	case BucketBonus:
		return "💎 Бонусные баллы"
	case BucketRubles:
		return "💵 Рубли"
	default:
		return string(b)
	}
}

// Kind — вид операции в журнале.
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindTransfer Kind = "transfer"
)

// Title — название операции для истории.
func (k Kind) Title() string {
	switch k {
	case KindDeposit:
		return "пополнение"
	case KindWithdraw:
		return "списание"
	case KindTransfer:
		return "перевод"
	default:
		return string(k)
	}
}

// Transaction — одна запись журнала. Amount со знаком: + зачисление, - списание.
type Transaction struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Bucket      Bucket          `db:"bucket"`
	Amount      decimal.Decimal `db:"amount"`
	Kind        Kind            `db:"kind"`
	Description string          `db:"description"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Balances — остатки по всем счетам пользователя.
type Balances map[Bucket]decimal.Decimal

// Get возвращает остаток счёта; отсутствующий счёт равен нулю.
func (b Balances) Get(bucket Bucket) decimal.Decimal {
	if v, ok := b[bucket]; ok {
		return v
	}
	return decimal.Zero
}

// ParseAmount разбирает сумму из команды: положительная, не больше двух знаков после запятой.
// Запятая в качестве разделителя тоже принимается.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, common.ErrInvalidAmount)
	}
	if err := validateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// Верхняя граница NUMERIC(14,2)
var maxAmount = decimal.New(1, 12)

func validateAmount(d decimal.Decimal) error {
	if !d.IsPositive() || d.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%s: %w", d, common.ErrInvalidAmount)
	}
	if !d.Equal(d.Round(2)) {
		return fmt.Errorf("%s: %w", d, common.ErrInvalidAmount)
	}
	return nil
}
