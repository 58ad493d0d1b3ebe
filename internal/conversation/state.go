// Package conversation хранит состояние диалога пользователя с ботом
// и следит, чтобы переходы между состояниями были допустимыми.
// Само состояние лежит в БД (таблица users), здесь только правила.
package conversation

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"zenith.dev/telegram-bot/internal/common"
)

// State — режим, в котором находится пользователь.
type State string

const (
	StateMain          State = "main"
	StateAdmin         State = "admin"
	StateAwaitingInput State = "awaiting_input"
)

// ParseState переводит строку из БД в State.
// Неизвестные значения считаются главным меню.
func ParseState(s string) State {
	switch State(s) {
	case StateMain, StateAdmin, StateAwaitingInput:
		return State(s)
	default:
		return StateMain
	}
}

func (s State) String() string { return string(s) }

// Title — название состояния для экранов статистики.
func (s State) Title() string {
	switch s {
	case StateAdmin:
		return "админ-панель"
	case StateAwaitingInput:
		return "ожидание ввода"
	default:
		return "главное меню"
	}
}

var transitions = map[State][]State{
	StateMain:          {StateAdmin, StateAwaitingInput},
	StateAdmin:         {StateMain},
	StateAwaitingInput: {StateMain},
}

// CanTransition сообщает, разрешён ли переход from → to.
// Переход в то же состояние всегда разрешён.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Store читает и записывает состояние пользователя.
type Store interface {
	GetState(ctx context.Context, userID int64) (State, error)
	SetState(ctx context.Context, userID int64, state State) error
}

// Machine проверяет и сохраняет переходы состояний.
type Machine struct {
	store Store
}

// NewMachine создаёт машину состояний поверх хранилища.
func NewMachine(store Store) *Machine {
	return &Machine{store: store}
}

// Current всегда читает состояние из хранилища, без кеша.
func (m *Machine) Current(ctx context.Context, userID int64) (State, error) {
	return m.store.GetState(ctx, userID)
}

// Transition переводит пользователя в состояние to и сохраняет его.
// Возвращает предыдущее состояние. При недопустимом переходе ничего не пишет
// и возвращает common.ErrIllegalTransition.
func (m *Machine) Transition(ctx context.Context, userID int64, to State) (State, error) {
	from, err := m.store.GetState(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("чтение состояния: %w", err)
	}

	if !CanTransition(from, to) {
		return from, fmt.Errorf("%s → %s: %w", from, to, common.ErrIllegalTransition)
	}
	if from == to {
		return from, nil
	}

	if err := m.store.SetState(ctx, userID, to); err != nil {
		return from, fmt.Errorf("сохранение состояния: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"from":    from,
		"to":      to,
	}).Debug("state transition")
	return from, nil
}
