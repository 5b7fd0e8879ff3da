package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

// FindOrCreateChat возвращает чат покупателя по товару, создавая его при первом обращении
func (s *Store) FindOrCreateChat(ctx context.Context, productID, buyerID, sellerID int64) (*models.Chat, error) {
	if buyerID == sellerID {
		return nil, fmt.Errorf("%w: cannot chat with yourself", models.ErrInvalidOperation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)`, productID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (product_id, buyer_id, seller_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (product_id, buyer_id) DO NOTHING
	`, productID, buyerID, sellerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	var chat models.Chat
	err = tx.QueryRowContext(ctx, `
		SELECT id, product_id, buyer_id, seller_id, created_at
		FROM chats
		WHERE product_id = ? AND buyer_id = ?
	`, productID, buyerID).Scan(&chat.ID, &chat.ProductID, &chat.BuyerID, &chat.SellerID, &chat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &chat, nil
}

// GetChat возвращает чат по ID
func (s *Store) GetChat(ctx context.Context, chatID int64) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, buyer_id, seller_id, created_at
		FROM chats
		WHERE id = ?
	`, chatID).Scan(&chat.ID, &chat.ProductID, &chat.BuyerID, &chat.SellerID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat %d: %w", chatID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

// ListChatsForUser возвращает чаты пользователя, новые первыми
func (s *Store) ListChatsForUser(ctx context.Context, userID int64) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.product_id, c.buyer_id, c.seller_id, c.created_at,
			p.title, p.image_url, b.name, sl.name
		FROM chats c
		JOIN products p ON p.id = c.product_id
		JOIN users b ON b.id = c.buyer_id
		JOIN users sl ON sl.id = c.seller_id
		WHERE c.buyer_id = ?1 OR c.seller_id = ?1
		ORDER BY c.created_at DESC, c.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
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
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// AppendMessage сохраняет сообщение; created_at внутри чата не убывает
func (s *Store) AppendMessage(ctx context.Context, chatID, authorID int64, text string) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM chats WHERE id = ?)`, chatID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check chat: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("chat %d: %w", chatID, models.ErrNotFound)
	}

	createdAt := s.now()
	var last time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT created_at FROM messages WHERE chat_id = ? ORDER BY id DESC LIMIT 1
	`, chatID).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read last message: %w", err)
	}
	if createdAt.Before(last) {
		createdAt = last
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (chat_id, author_id, text, created_at) VALUES (?, ?, ?, ?)
	`, chatID, authorID, text, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return &models.Message{
		ID:        id,
		ChatID:    chatID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: createdAt,
	}, nil
}

// ListMessages возвращает сообщения чата в порядке создания
func (s *Store) ListMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.chat_id, m.author_id, u.name, m.text, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.chat_id = ?
		ORDER BY m.id ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.AuthorID, &msg.AuthorName, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
