package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Store struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	URL         string          `json:"url"`
	Description *string         `json:"description,omitempty"` // nullable
	IsEnriched  bool            `json:"is_enriched"`
	StoreID     int             `json:"store_id"`
	StoreName   string          `json:"store_name,omitempty"` // joined, read paths only
	CreatedAt   time.Time       `json:"created_at"`
}

type Wishlist struct {
	ID     int `json:"id"`
	UserID int `json:"user_id"`
}

type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	ProductID int       `json:"product_id"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}
