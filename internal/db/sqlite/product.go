package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

const productColumns = `p.id, p.title, p.description, p.price, p.image_url, p.image_public_id,
	p.seller_id, p.created_at, u.name`

type scanner interface {
	Scan(dest ...any) error
}

// CreateProduct сохраняет объявление и заполняет ID и время создания
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	createdAt := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (title, description, price, image_url, image_public_id, seller_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, product.Title, product.Description, product.Price, product.ImageURL, product.ImagePublicID,
		product.SellerID, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	product.ID = id
	product.CreatedAt = createdAt
	return nil
}

// GetProduct возвращает объявление по ID
func (s *Store) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p JOIN users u ON u.id = p.seller_id
		WHERE p.id = ?
	`, productID)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListProducts возвращает объявления, новые первыми
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p JOIN users u ON u.id = p.seller_id
		ORDER BY p.created_at DESC, p.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.ImageURL, &p.ImagePublicID,
		&p.SellerID, &p.CreatedAt, &p.SellerName)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
