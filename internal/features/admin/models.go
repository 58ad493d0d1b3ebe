// Package admin реализует админ-панель: вход в режим администратора,
// список пользователей и детальную статистику.
// models.go описывает проверку прав доступа.
package admin

// Authorizer хранит список администраторов.
// Список загружается из ADMIN_IDS при старте и дальше не меняется.
type Authorizer struct {
	ids map[int64]struct{}
}

// NewAuthorizer создаёт проверку прав по списку Telegram user ID.
func NewAuthorizer(ids []int64) *Authorizer {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &Authorizer{ids: set}
}

// IsAdmin сообщает, входит ли пользователь в список администраторов.
func (a *Authorizer) IsAdmin(userID int64) bool {
	_, ok := a.ids[userID]
	return ok
}

// Count — сколько администраторов настроено.
func (a *Authorizer) Count() int {
	return len(a.ids)
}
