// Package postgres — вспомогательные функции для работы с БД.
// queries.go содержит общий интерфейс соединения и обёртку над транзакциями.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

// DB — то, что нужно репозиториям от пула. Ему удовлетворяют *pgxpool.Pool
// и pgxmock в тестах.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Builder — squirrel с плейсхолдерами $1, $2... для PostgreSQL.
var Builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// SQLSTATE нарушения CHECK-ограничения
const checkViolation = "23514"

// InTx выполняет fn в одной транзакции.
// Если fn вернула ошибку — транзакция откатывается, иначе фиксируется.
//
// Параметры:
//   - ctx: контекст
//   - db: пул соединений
//   - fn: тело транзакции
func InTx(ctx context.Context, db DB, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.WithError(rbErr).Debug("rollback failed")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// IsCheckViolation сообщает, что запрос нарушил CHECK-ограничение таблицы.
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == checkViolation
}
