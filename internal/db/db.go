package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/polimarket-api/internal/config"
	"github.com/rajivgeraev/polimarket-api/internal/models"
)

// Repository описывает хранилище, общее для Postgres и SQLite
type Repository interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindOrCreateTelegramUser(ctx context.Context, telegramID int64, name string) (*models.User, error)

	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)

	FindOrCreateChat(ctx context.Context, productID, buyerID, sellerID int64) (*models.Chat, error)
	GetChat(ctx context.Context, chatID int64) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID int64) ([]models.Chat, error)
	AppendMessage(ctx context.Context, chatID, authorID int64, text string) (*models.Message, error)
	ListMessages(ctx context.Context, chatID int64) ([]models.Message, error)

	Close()
}

// Store реализует Repository поверх пула соединений pgx
type Store struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Store)(nil)

// InitDB инициализирует пул соединений и схему базы данных
func InitDB(cfg *config.Config) (*Store, error) {
	log.Printf("Подключение к базе данных %s:%s/%s\n",
		cfg.DatabaseConfig.Host, cfg.DatabaseConfig.Port, cfg.DatabaseConfig.Name)

	// Создаем контекст с таймаутом для подключения
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Настраиваем конфигурацию пула соединений
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе URL базы данных: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пула соединений: %w", err)
	}

	// Проверяем соединение
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения: %w", err)
	}

	if _, err = pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка при создании схемы: %w", err)
	}

	log.Println("✅ Успешное подключение к базе данных")
	return &Store{pool: pool}, nil
}

// Close закрывает соединение с базой данных
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetContext возвращает контекст с таймаутом для запросов к базе данных
func GetContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
