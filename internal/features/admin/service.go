// Package admin — service.go собирает данные для экранов админ-панели.
package admin

import (
	"context"
	"fmt"
	"strings"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/features/users"
)

// Directory — то, что админке нужно от справочника пользователей.
type Directory interface {
	Page(ctx context.Context, page, size int) ([]*users.User, bool, error)
	Stats(ctx context.Context) (*users.Stats, error)
	Count(ctx context.Context) (int64, error)
}

// Service готовит тексты экранов админ-панели.
type Service struct {
	users    Directory
	pageSize int
}

// NewService создаёт сервис админ-панели. pageSize — пользователей на странице списка.
func NewService(users Directory, pageSize int) *Service {
	return &Service{users: users, pageSize: pageSize}
}

// UsersPage возвращает текст страницы списка и признак следующей страницы.
func (s *Service) UsersPage(ctx context.Context, page int) (string, bool, error) {
	if page < 0 {
		page = 0
	}
	list, hasNext, err := s.users.Page(ctx, page, s.pageSize)
	if err != nil {
		return "", false, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return "", false, err
	}
	return UsersPageText(list, total, page, s.pageSize), hasNext, nil
}

// Stats возвращает текст детальной статистики.
func (s *Service) Stats(ctx context.Context) (string, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return "", err
	}
	return users.StatsText("📊 Детальная статистика бота", stats, true), nil
}

// PanelText — текст главного экрана админ-панели.
func (s *Service) PanelText(ctx context.Context) (string, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🛠️ Панель администратора\n\n👥 Пользователей: %s\n\nВыберите действие:",
		common.FormatNumber(total)), nil
}

// UsersPageText — одна страница списка пользователей.
func UsersPageText(list []*users.User, total int64, page, pageSize int) string {
	if len(list) == 0 {
		return "👥 Пользователи\n\nНа этой странице никого нет"
	}

	var sb strings.Builder
	pages := (total + int64(pageSize) - 1) / int64(pageSize)
	fmt.Fprintf(&sb, "👥 Пользователи (%s), страница %d из %d\n",
		common.FormatUsersCount(total), page+1, max(pages, 1))

	for i, u := range list {
		fmt.Fprintf(&sb, "\n%d. %s (%s)\n   %s, с %s",
			page*pageSize+i+1,
			common.OrDash(u.FirstName),
			common.Mention(u.Username, u.UserID),
			u.State.Title(),
			common.FormatDate(u.CreatedAt))
	}
	return sb.String()
}
