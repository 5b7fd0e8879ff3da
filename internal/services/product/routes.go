package product

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API объявлений
func (s *ProductService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/products")

	// Публичные маршруты
	api.Get("/", s.GetProducts)
	api.Get("/:id", s.GetProduct)

	// Защищенные маршруты
	api.Post("/", s.CreateProduct, authMiddleware)
}
