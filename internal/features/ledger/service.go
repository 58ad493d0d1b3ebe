// Package ledger — service.go содержит бизнес-логику балансов:
// проверку сумм и получателей, описания переводов, логирование операций.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/features/users"
)

// Store — операции с балансами, которые нужны сервису.
type Store interface {
	GetBalance(ctx context.Context, userID int64, bucket Bucket) (decimal.Decimal, error)
	Balances(ctx context.Context, userID int64) (Balances, error)
	Deposit(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error)
	Transfer(ctx context.Context, req TransferRequest) error
	History(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
}

// Directory — справочник пользователей: получатель должен существовать.
type Directory interface {
	GetByUserID(ctx context.Context, userID int64) (*users.User, error)
}

// Service управляет балансами пользователей.
type Service struct {
	repo         Store
	users        Directory
	historyLimit int
}

// NewService создаёт сервис балансов. historyLimit — сколько операций показывать в истории.
func NewService(repo Store, users Directory, historyLimit int) *Service {
	return &Service{repo: repo, users: users, historyLimit: historyLimit}
}

// Balance возвращает остаток одного счёта.
func (s *Service) Balance(ctx context.Context, userID int64, bucket Bucket) (decimal.Decimal, error) {
	return s.repo.GetBalance(ctx, userID, bucket)
}

// Balances возвращает остатки по всем счетам.
func (s *Service) Balances(ctx context.Context, userID int64) (Balances, error) {
	return s.repo.Balances(ctx, userID)
}

// History возвращает последние операции пользователя.
func (s *Service) History(ctx context.Context, userID int64) ([]*Transaction, error) {
	return s.repo.History(ctx, userID, s.historyLimit)
}

// Deposit пополняет счёт пользователя и возвращает новый остаток.
func (s *Service) Deposit(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if err := s.checkOperation(ctx, userID, amount); err != nil {
		return decimal.Zero, err
	}

	balance, err := s.repo.Deposit(ctx, userID, bucket, amount, description)
	if err != nil {
		return decimal.Zero, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"bucket":  bucket,
		"amount":  amount.StringFixed(2),
		"balance": balance.StringFixed(2),
	}).Info("deposit completed")
	return balance, nil
}

// Withdraw списывает средства со счёта и возвращает новый остаток.
func (s *Service) Withdraw(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if err := s.checkOperation(ctx, userID, amount); err != nil {
		return decimal.Zero, err
	}

	balance, err := s.repo.Withdraw(ctx, userID, bucket, amount, description)
	if err != nil {
		return decimal.Zero, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"bucket":  bucket,
		"amount":  amount.StringFixed(2),
		"balance": balance.StringFixed(2),
	}).Info("withdraw completed")
	return balance, nil
}

// Transfer переводит amount со счёта from на тот же счёт пользователя to.
func (s *Service) Transfer(ctx context.Context, from, to int64, bucket Bucket, amount decimal.Decimal, description string) error {
	if from == to {
		return common.ErrSelfTransfer
	}
	if err := s.checkOperation(ctx, to, amount); err != nil {
		return err
	}

	req := TransferRequest{
		From:            from,
		To:              to,
		Bucket:          bucket,
		Amount:          amount,
		FromDescription: fmt.Sprintf("Перевод пользователю %d", to),
		ToDescription:   fmt.Sprintf("Перевод от пользователя %d", from),
	}
	if description != "" {
		req.FromDescription += ": " + description
		req.ToDescription += ": " + description
	}

	if err := s.repo.Transfer(ctx, req); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"from":   from,
		"to":     to,
		"bucket": bucket,
		"amount": amount.StringFixed(2),
	}).Info("transfer completed")
	return nil
}

// checkOperation проверяет сумму и существование пользователя, со счётом которого работаем.
func (s *Service) checkOperation(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if _, err := s.users.GetByUserID(ctx, userID); err != nil {
		return err
	}
	return nil
}
