package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

const userColumns = `id, name, email, password_hash, telegram_id, created_at`

// CreateUser создает пользователя с email и хешем пароля
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)
	`, name, email, passwordHash, s.now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID получает пользователя по ID
func (s *Store) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	return lookupUser(row)
}

// GetUserByEmail получает пользователя по email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return lookupUser(row)
}

// FindOrCreateTelegramUser создает пользователя Telegram или обновляет имя существующего
func (s *Store) FindOrCreateTelegramUser(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, telegram_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET name = excluded.name
	`, name, telegramID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert telegram user: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	return lookupUser(row)
}

func lookupUser(row *sql.Row) (*models.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var email, passwordHash sql.NullString
	var telegramID sql.NullInt64

	if err := row.Scan(&user.ID, &user.Name, &email, &passwordHash, &telegramID, &user.CreatedAt); err != nil {
		return nil, err
	}

	user.Email = email.String
	user.PasswordHash = passwordHash.String
	user.TelegramID = telegramID.Int64
	return &user, nil
}
