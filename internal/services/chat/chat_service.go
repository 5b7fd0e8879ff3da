package chat

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/polimarket-api/internal/auth"
	"github.com/rajivgeraev/polimarket-api/internal/db"
	"github.com/rajivgeraev/polimarket-api/internal/middleware"
	"github.com/rajivgeraev/polimarket-api/internal/models"
)

// ChatStore хранилище чатов, нужное REST API
type ChatStore interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	FindOrCreateChat(ctx context.Context, productID, buyerID, sellerID int64) (*models.Chat, error)
	GetChat(ctx context.Context, chatID int64) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID int64) ([]models.Chat, error)
	ListMessages(ctx context.Context, chatID int64) ([]models.Message, error)
}

// ChatService представляет сервис для работы с чатами
type ChatService struct {
	store ChatStore
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(store ChatStore) *ChatService {
	return &ChatService{store: store}
}

// StartOrGetChat возвращает ID чата текущего пользователя с продавцом товара
func (s *ChatService) StartOrGetChat(ctx context.Context, productID, buyerID int64) (int64, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}

	chat, err := s.store.FindOrCreateChat(ctx, productID, buyerID, product.SellerID)
	if err != nil {
		return 0, err
	}
	return chat.ID, nil
}

// ListMessages возвращает историю чата, если пользователь его участник
func (s *ChatService) ListMessages(ctx context.Context, chatID, userID int64) ([]models.Message, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeOrFail(chat, userID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, chatID)
}

// StartChat обрабатывает POST /api/chats/start
func (s *ChatService) StartChat(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	var requestData struct {
		ProductID int64 `json:"product_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil || requestData.ProductID <= 0 {
		// Поддерживаем и ?product_id= как в первой версии API
		if id, qerr := strconv.ParseInt(c.Query("product_id"), 10, 64); qerr == nil && id > 0 {
			requestData.ProductID = id
		} else {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не указан product_id"})
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	chatID, err := s.StartOrGetChat(ctx, requestData.ProductID, userID)
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"chat_id": chatID})
}

// GetChats возвращает список чатов пользователя
func (s *ChatService) GetChats(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	chats, err := s.store.ListChatsForUser(ctx, userID)
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"chats": chats,
		"count": len(chats),
	})
}

// GetChatMessages возвращает сообщения конкретного чата
func (s *ChatService) GetChatMessages(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	chatID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || chatID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	messages, err := s.ListMessages(ctx, chatID, userID)
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

func (s *ChatService) errorResponse(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Не найдено"})
	case errors.Is(err, models.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
	case errors.Is(err, models.ErrInvalidOperation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя создать чат с самим собой"})
	default:
		log.Printf("Ошибка чата: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
}
