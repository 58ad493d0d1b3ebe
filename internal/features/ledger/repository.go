// Package ledger — repository.go выполняет все операции с таблицами balances и transactions.
// Все денежные операции выполняются в транзакциях БД для целостности данных.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/db/postgres"
)

// TransferRequest — параметры перевода между пользователями.
type TransferRequest struct {
	From   int64
	To     int64
	Bucket Bucket
	Amount decimal.Decimal
	// Описания для записей в журнале отправителя и получателя
	FromDescription string
	ToDescription   string
}

// Repository предоставляет методы для работы с балансами и транзакциями.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт новый репозиторий балансов.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// GetBalance возвращает остаток счёта. Если счёта ещё нет — ноль.
func (r *Repository) GetBalance(ctx context.Context, userID int64, bucket Bucket) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT amount FROM balances WHERE user_id = $1 AND bucket = $2`,
		userID, string(bucket),
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return amount, nil
}

// Balances возвращает остатки по всем счетам пользователя.
func (r *Repository) Balances(ctx context.Context, userID int64) (Balances, error) {
	rows, err := r.db.Query(ctx, `SELECT bucket, amount FROM balances WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения балансов: %w", err)
	}
	defer rows.Close()

	out := make(Balances, len(Buckets))
	for rows.Next() {
		var (
			bucket string
			amount decimal.Decimal
		)
		if err := rows.Scan(&bucket, &amount); err != nil {
			return nil, fmt.Errorf("ошибка сканирования баланса: %w", err)
		}
		out[Bucket(bucket)] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения балансов: %w", err)
	}
	return out, nil
}

// Deposit зачисляет amount на счёт и возвращает новый остаток.
// Счёт создаётся, если его ещё не было.
func (r *Repository) Deposit(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO balances (user_id, bucket, amount)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, bucket) DO UPDATE
			SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()
			RETURNING amount
		`, userID, string(bucket), amount).Scan(&balance)
		if err != nil {
			return fmt.Errorf("ошибка зачисления: %w", err)
		}
		return record(ctx, tx, userID, bucket, amount, KindDeposit, description)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Withdraw списывает amount со счёта и возвращает новый остаток.
// Если денег не хватает — common.ErrInsufficientFunds, ничего не меняется.
func (r *Repository) Withdraw(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		// Проверяем баланс перед списанием (с блокировкой строки FOR UPDATE)
		current, err := lockBalance(ctx, tx, userID, bucket)
		if err != nil {
			return err
		}
		if current.LessThan(amount) {
			return fmt.Errorf("нужно %s, есть %s: %w",
				common.FormatAmount(amount), common.FormatAmount(current), common.ErrInsufficientFunds)
		}

		if balance, err = applyDelta(ctx, tx, userID, bucket, amount.Neg()); err != nil {
			return err
		}
		return record(ctx, tx, userID, bucket, amount.Neg(), KindWithdraw, description)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Transfer переводит средства между пользователями одного типа счёта.
// Атомарная операция: либо оба баланса и обе записи журнала, либо ничего.
func (r *Repository) Transfer(ctx context.Context, req TransferRequest) error {
	return postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		// Гарантируем, что оба счёта существуют, иначе блокировать нечего
		if _, err := tx.Exec(ctx, `
			INSERT INTO balances (user_id, bucket)
			VALUES ($1, $3), ($2, $3)
			ON CONFLICT (user_id, bucket) DO NOTHING
		`, req.From, req.To, string(req.Bucket)); err != nil {
			return fmt.Errorf("ошибка создания счетов: %w", err)
		}

		// Блокируем обе строки всегда в порядке возрастания user_id,
		// чтобы встречные переводы не взаимоблокировались
		first, second := req.From, req.To
		if second < first {
			first, second = second, first
		}
		locked := make(map[int64]decimal.Decimal, 2)
		for _, id := range []int64{first, second} {
			amount, err := lockBalance(ctx, tx, id, req.Bucket)
			if err != nil {
				return err
			}
			locked[id] = amount
		}

		if senderBalance := locked[req.From]; senderBalance.LessThan(req.Amount) {
			return fmt.Errorf("нужно %s, есть %s: %w",
				common.FormatAmount(req.Amount), common.FormatAmount(senderBalance), common.ErrInsufficientFunds)
		}

		// Списываем у отправителя
		if _, err := applyDelta(ctx, tx, req.From, req.Bucket, req.Amount.Neg()); err != nil {
			return err
		}
		if err := record(ctx, tx, req.From, req.Bucket, req.Amount.Neg(), KindTransfer, req.FromDescription); err != nil {
			return err
		}

		// Начисляем получателю
		if _, err := applyDelta(ctx, tx, req.To, req.Bucket, req.Amount); err != nil {
			return err
		}
		return record(ctx, tx, req.To, req.Bucket, req.Amount, KindTransfer, req.ToDescription)
	})
}

// History возвращает последние limit операций пользователя, новые первыми.
func (r *Repository) History(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	query, args, err := postgres.Builder.
		Select("id", "user_id", "bucket", "amount", "kind", "description", "created_at").
		From("transactions").
		Where("user_id = ?", userID).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var (
			t            Transaction
			bucket, kind string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &bucket, &t.Amount, &kind, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		t.Bucket, t.Kind = Bucket(bucket), Kind(kind)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения транзакций: %w", err)
	}
	return out, nil
}

// lockBalance читает остаток с блокировкой строки до конца транзакции.
// Отсутствующий счёт читается как ноль.
func lockBalance(ctx context.Context, tx pgx.Tx, userID int64, bucket Bucket) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := tx.QueryRow(ctx,
		`SELECT amount FROM balances WHERE user_id = $1 AND bucket = $2 FOR UPDATE`,
		userID, string(bucket),
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("ошибка блокировки баланса (user_id=%d): %w", userID, err)
	}
	return amount, nil
}

// applyDelta меняет остаток на delta. Уход в минус отсекает CHECK (amount >= 0).
func applyDelta(ctx context.Context, tx pgx.Tx, userID int64, bucket Bucket, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE balances
		SET amount = amount + $3, updated_at = NOW()
		WHERE user_id = $1 AND bucket = $2
		RETURNING amount
	`, userID, string(bucket), delta).Scan(&balance)
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return decimal.Zero, fmt.Errorf("user_id=%d: %w", userID, common.ErrInsufficientFunds)
		}
		return decimal.Zero, fmt.Errorf("ошибка изменения баланса (user_id=%d): %w", userID, err)
	}
	return balance, nil
}

// record пишет операцию в журнал.
func record(ctx context.Context, tx pgx.Tx, userID int64, bucket Bucket, amount decimal.Decimal, kind Kind, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (user_id, bucket, amount, kind, description)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, string(bucket), amount, string(kind), description)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}
