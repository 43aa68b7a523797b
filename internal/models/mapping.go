package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is returned whenever no mapping resolves for a product name
const DefaultCategory = "Uncategorized"

// ProductCategoryMapping maps a product name to a business category for one
// merchant. Read-only from the sync engine's perspective.
type ProductCategoryMapping struct {
	CreatedAt   time.Time `db:"created_at"`
	MerchantID  string    `db:"merchant_id"`
	ProductName string    `db:"product_name"`
	Category    string    `db:"category"`
	Active      bool      `db:"active"`
	ID          uuid.UUID `db:"id"`
}
