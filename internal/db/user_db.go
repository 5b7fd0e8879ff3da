package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, telegram_id, created_at`

// CreateUser создает пользователя с email и хешем пароля
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		name, email, passwordHash)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, models.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}
	return user, nil
}

// GetUserByID получает пользователя по ID
func (s *Store) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return lookupUser(row)
}

// GetUserByEmail получает пользователя по email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return lookupUser(row)
}

// FindOrCreateTelegramUser создает пользователя Telegram или обновляет имя существующего
func (s *Store) FindOrCreateTelegramUser(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, telegram_id)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING `+userColumns,
		name, telegramID)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("ошибка при сохранении пользователя Telegram: %w", err)
	}
	return user, nil
}

func lookupUser(row pgx.Row) (*models.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var email, passwordHash pgtype.Text
	var telegramID pgtype.Int8

	if err := row.Scan(&user.ID, &user.Name, &email, &passwordHash, &telegramID, &user.CreatedAt); err != nil {
		return nil, err
	}

	// Преобразуем nullable поля
	if email.Valid {
		user.Email = email.String
	}
	if passwordHash.Valid {
		user.PasswordHash = passwordHash.String
	}
	if telegramID.Valid {
		user.TelegramID = telegramID.Int64
	}

	return &user, nil
}
