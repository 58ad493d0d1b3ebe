// Package users — repository.go отвечает за все операции с таблицей users в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/conversation"
	"zenith.dev/telegram-bot/internal/db/postgres"
)

var userColumns = []string{
	"user_id", "first_name", "last_name", "username", "state", "created_at", "updated_at",
}

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Upsert регистрирует пользователя или обновляет его имя/username.
// Состояние при повторном обращении не трогается; возвращается сохранённое.
func (r *Repository) Upsert(ctx context.Context, p Profile) (conversation.State, error) {
	query := `
		INSERT INTO users (user_id, first_name, last_name, username)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    username = EXCLUDED.username,
		    updated_at = NOW()
		RETURNING state
	`
	var state string
	if err := r.db.QueryRow(ctx, query, p.UserID, p.FirstName, p.LastName, p.Username).Scan(&state); err != nil {
		return "", fmt.Errorf("ошибка регистрации пользователя (user_id=%d): %w", p.UserID, err)
	}
	return conversation.ParseState(state), nil
}

// GetByUserID: если не найден — ошибка с common.ErrUserNotFound.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*User, error) {
	query, args, err := postgres.Builder.
		Select(userColumns...).
		From("users").
		Where("user_id = ?", userID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса: %w", err)
	}
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (user_id=%d): %w", userID, err)
	}
	return u, nil
}

// GetByUsername ищет без учёта регистра; username передаётся без @.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query, args, err := postgres.Builder.
		Select(userColumns...).
		From("users").
		Where("LOWER(username) = LOWER(?)", username).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса: %w", err)
	}
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("username=%s: %w", username, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (username=%s): %w", username, err)
	}
	return u, nil
}

// GetState возвращает сохранённое состояние. Для незнакомого пользователя — главное меню.
func (r *Repository) GetState(ctx context.Context, userID int64) (conversation.State, error) {
	var state string
	err := r.db.QueryRow(ctx, `SELECT state FROM users WHERE user_id = $1`, userID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return conversation.StateMain, nil
		}
		return "", fmt.Errorf("ошибка чтения состояния (user_id=%d): %w", userID, err)
	}
	return conversation.ParseState(state), nil
}

// SetState сохраняет состояние. Пользователь должен уже существовать.
func (r *Repository) SetState(ctx context.Context, userID int64, state conversation.State) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET state = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, string(state),
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения состояния (user_id=%d): %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	return nil
}

// List возвращает страницу пользователей, новые первыми.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*User, error) {
	query, args, err := postgres.Builder.
		Select(userColumns...).
		From("users").
		OrderBy("created_at DESC", "user_id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса: %w", err)
	}
	return r.queryUsers(ctx, query, args...)
}

// Count возвращает общее число пользователей.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return n, nil
}

// CountByState возвращает распределение пользователей по состояниям.
func (r *Repository) CountByState(ctx context.Context) (map[conversation.State]int64, error) {
	query, args, err := postgres.Builder.
		Select("state", "COUNT(*)").
		From("users").
		GroupBy("state").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса статистики: %w", err)
	}
	defer rows.Close()

	out := make(map[conversation.State]int64)
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out[conversation.ParseState(state)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r *Repository) queryUsers(ctx context.Context, query string, args ...any) ([]*User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса пользователей: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u     User
		state string
	)
	if err := row.Scan(
		&u.UserID, &u.FirstName, &u.LastName, &u.Username, &state, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.State = conversation.ParseState(state)
	return &u, nil
}
