package product

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/polimarket-api/internal/db"
	"github.com/rajivgeraev/polimarket-api/internal/middleware"
	"github.com/rajivgeraev/polimarket-api/internal/models"
	"github.com/rajivgeraev/polimarket-api/internal/services/cloudinary"
)

const (
	maxTitleLength = 200
	uploadTimeout  = 30 * time.Second
)

// ProductStore хранилище объявлений
type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// ImageUploader загружает изображения товаров во внешнее хранилище
type ImageUploader interface {
	UploadImage(ctx context.Context, file io.Reader, filename string) (*cloudinary.UploadedImage, error)
}

// ProductService представляет сервис для работы с объявлениями
type ProductService struct {
	products ProductStore
	images   ImageUploader
}

// NewProductService создает новый экземпляр ProductService
func NewProductService(products ProductStore, images ImageUploader) *ProductService {
	return &ProductService{
		products: products,
		images:   images,
	}
}

// GetProducts возвращает все объявления, новые первыми
func (s *ProductService) GetProducts(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	products, err := s.products.ListProducts(ctx)
	if err != nil {
		log.Printf("Ошибка получения объявлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}

	return c.JSON(fiber.Map{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct возвращает одно объявление по ID
func (s *ProductService) GetProduct(c fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || productID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка получения объявления %d: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	return c.JSON(product)
}

// CreateProduct создает объявление из multipart-формы с изображением
func (s *ProductService) CreateProduct(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	title := strings.TrimSpace(c.FormValue("title"))
	description := strings.TrimSpace(c.FormValue("description"))
	if title == "" || len(title) > maxTitleLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название обязательно"})
	}

	price, err := strconv.ParseFloat(c.FormValue("price"), 64)
	if err != nil || price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверная цена"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Добавьте изображение"})
	}
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Файл должен быть изображением"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("Ошибка открытия файла: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не удалось прочитать файл"})
	}
	defer file.Close()

	uploadCtx, cancelUpload := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancelUpload()

	image, err := s.images.UploadImage(uploadCtx, file, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, cloudinary.ErrUploadsDisabled) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Загрузка изображений недоступна"})
		}
		log.Printf("Ошибка загрузки изображения: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Ошибка загрузки изображения"})
	}

	product := &models.Product{
		Title:         title,
		Description:   description,
		Price:         price,
		ImageURL:      image.URL,
		ImagePublicID: image.PublicID,
		SellerID:      userID,
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.products.CreateProduct(ctx, product); err != nil {
		log.Printf("Ошибка сохранения объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения объявления"})
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}
