package models

import "time"

// Chat представляет переписку покупателя и продавца по одному товару
type Chat struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	BuyerID   int64     `json:"buyer_id"`
	SellerID  int64     `json:"seller_id"`
	CreatedAt time.Time `json:"created_at"`

	// Дополнительные поля для API
	ProductTitle    string `json:"product_title,omitempty"`
	ProductImageURL string `json:"product_image_url,omitempty"`
	BuyerName       string `json:"buyer_name,omitempty"`
	SellerName      string `json:"seller_name,omitempty"`
}

// Message представляет сообщение в чате. После создания не изменяется.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	// Дополнительные поля для API
	AuthorName string `json:"author_name,omitempty"`
}
