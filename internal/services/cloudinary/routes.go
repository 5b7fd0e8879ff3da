package cloudinary

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты загрузки изображений
func (s *CloudinaryService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/upload")
	api.Use(authMiddleware)

	// Маршрут для получения параметров загрузки
	api.Get("/params", s.GenerateUploadParams)
}
