// Package users — service.go содержит бизнес-логику управления пользователями.
// Сервис регистрирует пользователей, хранит состояние диалога и собирает статистику.
package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/conversation"
)

// Store — операции с таблицей users, которые нужны сервису.
type Store interface {
	Upsert(ctx context.Context, p Profile) (conversation.State, error)
	GetByUserID(ctx context.Context, userID int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetState(ctx context.Context, userID int64) (conversation.State, error)
	SetState(ctx context.Context, userID int64, state conversation.State) error
	List(ctx context.Context, limit, offset int) ([]*User, error)
	Count(ctx context.Context) (int64, error)
	CountByState(ctx context.Context) (map[conversation.State]int64, error)
}

// Сколько последних пользователей показывать в статистике
const latestUsersInStats = 5

// Service управляет пользователями бота.
type Service struct {
	repo Store
}

// NewService создаёт новый сервис пользователей.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Touch регистрирует пользователя (или обновляет имя) и возвращает
// актуальное состояние из БД. Вызывается на каждое событие.
func (s *Service) Touch(ctx context.Context, p Profile) (conversation.State, error) {
	state, err := s.repo.Upsert(ctx, p)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"user_id": p.UserID,
		"state":   state,
	}).Debug("user touched")
	return state, nil
}

// GetState реализует conversation.Store.
func (s *Service) GetState(ctx context.Context, userID int64) (conversation.State, error) {
	return s.repo.GetState(ctx, userID)
}

// SetState реализует conversation.Store.
func (s *Service) SetState(ctx context.Context, userID int64, state conversation.State) error {
	return s.repo.SetState(ctx, userID, state)
}

// GetByUserID возвращает пользователя по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Resolve находит пользователя по ссылке из команды: "@username", "username" или числовой ID.
func (s *Service) Resolve(ctx context.Context, ref string) (*User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.ErrBadArguments
	}
	if !strings.HasPrefix(ref, "@") {
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
			return s.repo.GetByUserID(ctx, id)
		}
	}
	username := strings.TrimPrefix(ref, "@")
	if username == "" {
		return nil, common.ErrBadArguments
	}
	return s.repo.GetByUsername(ctx, username)
}

// Count возвращает общее число пользователей.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Page возвращает страницу списка пользователей и признак наличия следующей страницы.
func (s *Service) Page(ctx context.Context, page, size int) ([]*User, bool, error) {
	if page < 0 {
		page = 0
	}
	// Берём на одну запись больше, чтобы понять, есть ли следующая страница
	list, err := s.repo.List(ctx, size+1, page*size)
	if err != nil {
		return nil, false, err
	}
	hasNext := len(list) > size
	if hasNext {
		list = list[:size]
	}
	return list, hasNext, nil
}

// Stats собирает сводку: всего, по состояниям, последние регистрации.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	byState, err := s.repo.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.repo.List(ctx, latestUsersInStats, 0)
	if err != nil {
		return nil, fmt.Errorf("последние пользователи: %w", err)
	}
	return &Stats{Total: total, ByState: byState, Latest: latest}, nil
}
