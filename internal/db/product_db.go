package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

const productColumns = `p.id, p.title, p.description, p.price, p.image_url, p.image_public_id,
	p.seller_id, p.created_at, u.name`

// CreateProduct сохраняет объявление и заполняет ID и время создания
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (title, description, price, image_url, image_public_id, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, product.Title, product.Description, product.Price, product.ImageURL, product.ImagePublicID, product.SellerID).
		Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при создании объявления: %w", err)
	}
	return nil
}

// GetProduct возвращает объявление по ID
func (s *Store) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p JOIN users u ON u.id = p.seller_id
		WHERE p.id = $1
	`, productID)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении объявления: %w", err)
	}
	return product, nil
}

// ListProducts возвращает объявления, новые первыми
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products p JOIN users u ON u.id = p.seller_id
		ORDER BY p.created_at DESC, p.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования объявления: %w", err)
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.ImageURL, &p.ImagePublicID,
		&p.SellerID, &p.CreatedAt, &p.SellerName)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
