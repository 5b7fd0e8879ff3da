// Package sqlite реализует хранилище маркетплейса поверх SQLite.
// Используется для локального запуска (DB_DRIVER=sqlite) и в тестах.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/rajivgeraev/polimarket-api/internal/db"
)

// Store реализует db.Repository поверх database/sql и go-sqlite3
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ db.Repository = (*Store)(nil)

var memoryCounter atomic.Int64

// Open открывает файл базы данных и создает схему
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	return open(dsn)
}

// OpenMemory открывает изолированную базу в памяти
func OpenMemory() (*Store, error) {
	name := fmt.Sprintf("polimarket_%d_%d", time.Now().UnixNano(), memoryCounter.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	return open(dsn)
}

func open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Один писатель: SQLite сериализует транзакции, а база в памяти живет, пока жив коннект
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("✅ SQLite хранилище готово")
	return &Store{db: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close закрывает базу данных
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		log.Printf("Ошибка закрытия SQLite: %v", err)
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	email         TEXT UNIQUE,
	password_hash TEXT,
	telegram_id   INTEGER UNIQUE,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	price           REAL NOT NULL,
	image_url       TEXT NOT NULL DEFAULT '',
	image_public_id TEXT NOT NULL DEFAULT '',
	seller_id       INTEGER NOT NULL REFERENCES users(id),
	created_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL REFERENCES products(id),
	buyer_id   INTEGER NOT NULL REFERENCES users(id),
	seller_id  INTEGER NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL,
	UNIQUE (product_id, buyer_id),
	CHECK (buyer_id <> seller_id)
);
CREATE INDEX IF NOT EXISTS idx_chats_buyer_id ON chats(buyer_id);
CREATE INDEX IF NOT EXISTS idx_chats_seller_id ON chats(seller_id);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id    INTEGER NOT NULL REFERENCES chats(id),
	author_id  INTEGER NOT NULL REFERENCES users(id),
	text       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id, id);
`
