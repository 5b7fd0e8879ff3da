package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/polimarket-api/internal/config"
	"github.com/rajivgeraev/polimarket-api/internal/db"
	"github.com/rajivgeraev/polimarket-api/internal/db/sqlite"
	"github.com/rajivgeraev/polimarket-api/internal/middleware"
	"github.com/rajivgeraev/polimarket-api/internal/services/auth"
	"github.com/rajivgeraev/polimarket-api/internal/services/chat"
	"github.com/rajivgeraev/polimarket-api/internal/services/cloudinary"
	"github.com/rajivgeraev/polimarket-api/internal/services/product"
	"github.com/rajivgeraev/polimarket-api/internal/utils"
	"github.com/rajivgeraev/polimarket-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}

	// Инициализируем базу данных
	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer store.Close()

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Polimarket API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы
	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewAuthService(cfg, store, jwtService)
	cloudinaryService, err := cloudinary.NewCloudinaryService(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации Cloudinary: %v", err)
	}
	productService := product.NewProductService(store, cloudinaryService)
	chatService := chat.NewChatService(store)

	// Настраиваем middleware для аутентификации
	authMiddleware := middleware.AuthMiddleware(jwtService)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app, authMiddleware)
	productService.SetupRoutes(app, authMiddleware)
	chatService.SetupRoutes(app, authMiddleware)

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Real-time сервер чатов
	registry := websocket.NewRegistry()
	sessions := websocket.NewSessionHandler(registry, store, store, jwtService, cfg.WSAllowedOrigins)
	wsServer := &http.Server{
		Addr:              ":" + cfg.WSPort,
		Handler:           websocket.NewRouter(sessions),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("✅ WebSocket сервер запущен на порту %s", cfg.WSPort)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Ошибка WebSocket сервера: %v", err)
		}
	}()

	go func() {
		log.Printf("✅ Polimarket API запущен на порту %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Ошибка HTTP сервера: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Останавливаем сервер...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	registry.Shutdown()
	if err := wsServer.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Ошибка остановки WebSocket сервера: %v", err)
	}
	if err := app.Shutdown(); err != nil {
		log.Printf("⚠️ Ошибка остановки HTTP сервера: %v", err)
	}
}

// openStore выбирает хранилище по DB_DRIVER
func openStore(cfg *config.Config) (db.Repository, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := db.InitDB(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		log.Printf("⚠️ Используется SQLite: %s", cfg.SQLitePath)
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown DB driver %q", cfg.DBDriver)
	}
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
