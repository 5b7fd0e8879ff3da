package models

import "time"

// Product представляет объявление о продаже товара
type Product struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	ImageURL      string    `json:"image_url"`
	ImagePublicID string    `json:"image_public_id,omitempty"`
	SellerID      int64     `json:"seller_id"`
	CreatedAt     time.Time `json:"created_at"`

	// Дополнительные поля для API
	SellerName string `json:"seller_name,omitempty"`
}
