package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config структура конфигурации
type Config struct {
	Port               string
	WSPort             string
	AppEnv             string
	JWTSecret          string
	TokenTTL           time.Duration
	TelegramBotToken   string
	AllowedEmailDomain string
	WSAllowedOrigins   []string
	DBDriver           string
	DatabaseURL        string
	SQLitePath         string
	DatabaseConfig     DatabaseConfig
	CloudinaryConfig   CloudinaryConfig
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	UploadFolder string
}

// Enabled сообщает, заданы ли ключи Cloudinary
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// LoadConfig загружает переменные из .env и окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "polimarket"),
		Password: getEnv("PGPASSWORD", "polimarket"),
		Name:     getEnv("PGDATABASE", "polimarket"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	// Формируем строку подключения к базе данных
	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("неверное значение TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, errors.New("TOKEN_TTL должен быть положительным")
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		WSPort:             getEnv("WS_PORT", "8081"),
		AppEnv:             getEnv("APP_ENV", "production"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TokenTTL:           ttl,
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		AllowedEmailDomain: strings.ToLower(getEnv("ALLOWED_EMAIL_DOMAIN", "")),
		WSAllowedOrigins:   splitList(getEnv("WS_ALLOWED_ORIGINS", "")),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DatabaseURL:        getEnv("DATABASE_URL", dbURL),
		SQLitePath:         getEnv("SQLITE_PATH", "polimarket.db"),
		DatabaseConfig:     dbConfig,
		CloudinaryConfig: CloudinaryConfig{
			CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
			UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "polimarket"),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "polimarket/products"),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("не задана обязательная переменная окружения JWT_SECRET")
	}

	if cfg.DBDriver != DriverPostgres && cfg.DBDriver != DriverSQLite {
		return nil, fmt.Errorf("неизвестный DB_DRIVER: %s", cfg.DBDriver)
	}

	return cfg, nil
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
