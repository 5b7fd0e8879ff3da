package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/polimarket-api/internal/config"
)

// ErrUploadsDisabled возвращается, если ключи Cloudinary не заданы
var ErrUploadsDisabled = errors.New("cloudinary: uploads are not configured")

// UploadedImage результат загрузки изображения
type UploadedImage struct {
	URL      string
	PublicID string
}

// CloudinaryService предоставляет методы для работы с Cloudinary
type CloudinaryService struct {
	cfg          config.CloudinaryConfig
	cld          *cloudinary.Cloudinary
	uploadFolder string
	uploadPreset string
	now          func() time.Time
}

// NewCloudinaryService создает новый экземпляр CloudinaryService.
// Без ключей сервис создается, но загрузка возвращает ErrUploadsDisabled.
func NewCloudinaryService(cfg *config.Config) (*CloudinaryService, error) {
	s := &CloudinaryService{
		cfg:          cfg.CloudinaryConfig,
		uploadFolder: cfg.CloudinaryConfig.UploadFolder,
		uploadPreset: cfg.CloudinaryConfig.UploadPreset,
		now:          time.Now,
	}

	if !cfg.CloudinaryConfig.Enabled() {
		log.Println("⚠️ Cloudinary не настроен, загрузка изображений отключена")
		return s, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudinaryConfig.CloudName, cfg.CloudinaryConfig.APIKey, cfg.CloudinaryConfig.APISecret)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Cloudinary: %w", err)
	}
	s.cld = cld

	return s, nil
}

// UploadImage загружает изображение товара и возвращает его публичный URL
func (s *CloudinaryService) UploadImage(ctx context.Context, file io.Reader, filename string) (*UploadedImage, error) {
	if s.cld == nil {
		return nil, ErrUploadsDisabled
	}

	publicID := uuid.New().String()
	if base := strings.TrimSuffix(path.Base(filename), path.Ext(filename)); base != "" && base != "." && base != "/" {
		publicID = base + "_" + publicID
	}

	res, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID: publicID,
		Folder:   s.uploadFolder,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки в Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("ошибка загрузки в Cloudinary: %s", res.Error.Message)
	}

	return &UploadedImage{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

// SignUploadParams подписывает параметры прямой загрузки из клиента
func (s *CloudinaryService) SignUploadParams() (fiber.Map, error) {
	if !s.cfg.Enabled() {
		return nil, ErrUploadsDisabled
	}

	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", s.uploadFolder)

	signature, err := api.SignParameters(params, s.cfg.APISecret)
	if err != nil {
		return nil, err
	}

	return fiber.Map{
		"timestamp":     timestamp,
		"folder":        s.uploadFolder,
		"upload_preset": s.uploadPreset,
		"signature":     signature,
		"api_key":       s.cfg.APIKey,
		"cloud_name":    s.cfg.CloudName,
	}, nil
}

// GenerateUploadParams создаёт параметры для загрузки изображений
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	params, err := s.SignUploadParams()
	if err != nil {
		if errors.Is(err, ErrUploadsDisabled) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Image uploads are disabled"})
		}
		log.Printf("Ошибка подписи параметров Cloudinary: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign upload"})
	}
	return c.JSON(params)
}
