package auth

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/rajivgeraev/polimarket-api/internal/config"
	"github.com/rajivgeraev/polimarket-api/internal/db"
	"github.com/rajivgeraev/polimarket-api/internal/middleware"
	"github.com/rajivgeraev/polimarket-api/internal/models"
	"github.com/rajivgeraev/polimarket-api/internal/utils"
)

// UserStore хранилище пользователей, нужное сервису авторизации
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindOrCreateTelegramUser(ctx context.Context, telegramID int64, name string) (*models.User, error)
}

// AuthService – структура для обработки авторизации
type AuthService struct {
	cfg        *config.Config
	users      UserStore
	jwtService *utils.JWTService
}

// NewAuthService – конструктор AuthService
func NewAuthService(cfg *config.Config, users UserStore, jwtService *utils.JWTService) *AuthService {
	return &AuthService{
		cfg:        cfg,
		users:      users,
		jwtService: jwtService,
	}
}

// RegisterHandler регистрирует пользователя по email и паролю
func (s *AuthService) RegisterHandler(c fiber.Ctx) error {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	name := strings.TrimSpace(payload.Name)
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if name == "" || payload.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name and password are required"})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email"})
	}
	if !s.emailAllowed(email) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Registration is only allowed for " + s.cfg.AllowedEmailDomain + " emails",
		})
	}

	hash, err := utils.HashPassword(payload.Password)
	if err != nil {
		log.Printf("Ошибка хеширования пароля: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already registered"})
		}
		log.Printf("Ошибка регистрации пользователя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": user.ID})
}

// LoginHandler проверяет email и пароль и выдает токен
func (s *AuthService) LoginHandler(c fiber.Ctx) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Printf("Ошибка получения пользователя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to login"})
	}
	if user == nil || !utils.VerifyPassword(payload.Password, user.PasswordHash) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": models.ErrInvalidCredentials.Error()})
	}

	return s.issueToken(c, user)
}

// TelegramAuthHandler проверяет initData, создает пользователя и возвращает JWT
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	if s.cfg.TelegramBotToken == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Telegram login is disabled"})
	}

	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	// Проверяем initData
	expiration := 24 * time.Hour
	if err := initdata.Validate(payload.InitData, s.cfg.TelegramBotToken, expiration); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}

	data, err := initdata.Parse(payload.InitData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to parse initData"})
	}

	name := strings.TrimSpace(data.User.FirstName + " " + data.User.LastName)
	if name == "" {
		name = data.User.Username
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.FindOrCreateTelegramUser(ctx, data.User.ID, name)
	if err != nil {
		log.Printf("Ошибка сохранения пользователя Telegram: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to login"})
	}

	return s.issueToken(c, user)
}

// MeHandler возвращает текущего пользователя
func (s *AuthService) MeHandler(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("Ошибка получения пользователя %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
	}

	return c.JSON(user)
}

// emailAllowed проверяет домен почты, если он ограничен конфигурацией
func (s *AuthService) emailAllowed(email string) bool {
	domain := s.cfg.AllowedEmailDomain
	if domain == "" {
		return true
	}
	if !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}
	return strings.HasSuffix(email, domain)
}

func (s *AuthService) issueToken(c fiber.Ctx, user *models.User) error {
	token, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		log.Printf("Ошибка генерации JWT: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}
