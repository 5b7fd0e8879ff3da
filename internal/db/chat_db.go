package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

const chatListColumns = `c.id, c.product_id, c.buyer_id, c.seller_id, c.created_at,
	p.title, p.image_url, b.name, sl.name`

// FindOrCreateChat возвращает чат покупателя по товару, создавая его при первом обращении.
// Повторные и конкурентные вызовы с той же парой (productID, buyerID) возвращают один и тот же чат.
func (s *Store) FindOrCreateChat(ctx context.Context, productID, buyerID, sellerID int64) (*models.Chat, error) {
	if buyerID == sellerID {
		return nil, fmt.Errorf("%w: нельзя создать чат с самим собой", models.ErrInvalidOperation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существования товара: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chats (product_id, buyer_id, seller_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, buyer_id) DO NOTHING
	`, productID, buyerID, sellerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания чата: %w", err)
	}

	var chat models.Chat
	err = tx.QueryRow(ctx, `
		SELECT id, product_id, buyer_id, seller_id, created_at
		FROM chats
		WHERE product_id = $1 AND buyer_id = $2
	`, productID, buyerID).Scan(&chat.ID, &chat.ProductID, &chat.BuyerID, &chat.SellerID, &chat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения чата: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return &chat, nil
}

// GetChat возвращает чат по ID
func (s *Store) GetChat(ctx context.Context, chatID int64) (*models.Chat, error) {
	var chat models.Chat
	err := s.pool.QueryRow(ctx, `
		SELECT id, product_id, buyer_id, seller_id, created_at
		FROM chats
		WHERE id = $1
	`, chatID).Scan(&chat.ID, &chat.ProductID, &chat.BuyerID, &chat.SellerID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat %d: %w", chatID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения чата: %w", err)
	}
	return &chat, nil
}

// ListChatsForUser возвращает чаты, где пользователь покупатель или продавец, новые первыми
func (s *Store) ListChatsForUser(ctx context.Context, userID int64) ([]models.Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chatListColumns+`
		FROM chats c
		JOIN products p ON p.id = c.product_id
		JOIN users b ON b.id = c.buyer_id
		JOIN users sl ON sl.id = c.seller_id
		WHERE c.buyer_id = $1 OR c.seller_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса чатов: %w", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(
			&chat.ID,
			&chat.ProductID,
			&chat.BuyerID,
			&chat.SellerID,
			&chat.CreatedAt,
			&chat.ProductTitle,
			&chat.ProductImageURL,
			&chat.BuyerName,
			&chat.SellerName,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// AppendMessage сохраняет сообщение. Строка чата блокируется на время вставки,
// поэтому порядок id и created_at внутри чата совпадает с порядком записи.
func (s *Store) AppendMessage(ctx context.Context, chatID, authorID int64, text string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM chats WHERE id = $1 FOR UPDATE`, chatID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat %d: %w", chatID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка блокировки чата: %w", err)
	}

	msg := models.Message{ChatID: chatID, AuthorID: authorID, Text: text}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (chat_id, author_id, text, created_at)
		VALUES ($1, $2, $3, GREATEST(clock_timestamp(),
			COALESCE((SELECT max(created_at) FROM messages WHERE chat_id = $1), '-infinity'::timestamptz)))
		RETURNING id, created_at
	`, chatID, authorID, text).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения сообщения: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return &msg, nil
}

// ListMessages возвращает сообщения чата в порядке создания
func (s *Store) ListMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.chat_id, m.author_id, u.name, m.text, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.chat_id = $1
		ORDER BY m.id ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса сообщений: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.AuthorID, &msg.AuthorName, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сообщения: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
