package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is the catalog's view of an item. The engine treats products as
// immutable; only the catalog owner changes them.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;size:64"`
	Name        string          `json:"name" gorm:"not null"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	Category    string          `json:"category" gorm:"index"`
	Image       string          `json:"image"`
	Featured    bool            `json:"featured,omitempty"`
}

// TableName pins the catalog table.
func (Product) TableName() string {
	return "products"
}

// Lookup is the read-only surface the commerce engine consumes. Wishlist and
// recently-viewed resolution go through it and drop ids it cannot resolve.
type Lookup interface {
	FindByID(ctx context.Context, id string) (*Product, error)
}
