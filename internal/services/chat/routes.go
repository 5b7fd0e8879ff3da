package chat

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API чатов
func (s *ChatService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	// Группа для API чатов
	api := app.Group("/api/chats")

	// Защищенные маршруты (требуют авторизации)
	api.Use(authMiddleware)

	api.Post("/start", s.StartChat)
	api.Get("/my", s.GetChats)
	api.Get("/:id/messages", s.GetChatMessages)
}
