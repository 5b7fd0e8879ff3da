package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

// UserIDKey ключ, под которым ID пользователя хранится в Locals
const UserIDKey = "userID"

// TokenVerifier проверяет токен и возвращает ID пользователя
type TokenVerifier interface {
	ExtractUserID(token string) (int64, error)
}

// AuthMiddleware создаёт middleware для проверки JWT
func AuthMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		// Проверяем Bearer токен
		tokenString, ok := BearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		userID, err := verifier.ExtractUserID(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		// Добавляем userID в контекст
		c.Locals(UserIDKey, userID)

		return c.Next()
	}
}

// BearerToken извлекает токен из заголовка "Bearer <token>"
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// UserID возвращает ID пользователя, сохраненный AuthMiddleware
func UserID(c fiber.Ctx) (int64, bool) {
	userID, ok := c.Locals(UserIDKey).(int64)
	return userID, ok && userID > 0
}
