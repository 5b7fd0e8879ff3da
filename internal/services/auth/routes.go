package auth

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/polimarket-api/internal/middleware"
)

// SetupRoutes регистрирует маршруты в Fiber
func (s *AuthService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/auth")

	api.Post("/register", s.RegisterHandler)
	api.Post("/login", s.LoginHandler)
	api.Post("/telegram", s.TelegramAuthHandler)

	// Защищенные маршруты
	api.Get("/me", s.MeHandler, middleware.AuthMiddleware(s.jwtService))
}
