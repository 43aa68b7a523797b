package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/merchantkit/paysync/internal/models"
)

// CategoryRepository defines the interface for product category mapping access
type CategoryRepository interface {
	FindCategory(ctx context.Context, merchantID, productName string) (string, error)
}

// categoryRepository implements CategoryRepository
type categoryRepository struct {
	db Querier
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(database Querier) CategoryRepository {
	return &categoryRepository{db: database}
}

// FindCategory looks up the active mapping for a product name. An absent or
// inactive mapping returns models.ErrNotFound; the resolver layer turns that
// into the default category.
func (r *categoryRepository) FindCategory(ctx context.Context, merchantID, productName string) (string, error) {
	query := `
		SELECT category
		FROM product_category_mappings
		WHERE merchant_id = $1 AND product_name = $2 AND active = TRUE
	`

	var category string
	err := r.db.QueryRowContext(ctx, query, merchantID, productName).Scan(&category)

	if err == sql.ErrNoRows {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find category mapping: %w", err)
	}

	return category, nil
}
