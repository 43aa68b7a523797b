package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/repository"
)

// CategoryResolver maps product names to business categories via the
// per-merchant mapping table. Resolution never fails: any miss (absent
// mapping, inactive mapping, empty product name, storage error) yields the
// default category so category lookup can never block persistence.
type CategoryResolver struct {
	repo   repository.CategoryRepository
	cache  *expirable.LRU[string, string]
	logger *slog.Logger
}

// NewCategoryResolver creates a CategoryResolver with the given cache size
// and TTL.
func NewCategoryResolver(repo repository.CategoryRepository, size int, ttl time.Duration, logger *slog.Logger) *CategoryResolver {
	if size <= 0 {
		size = 128
	}
	return &CategoryResolver{
		repo:   repo,
		cache:  expirable.NewLRU[string, string](size, nil, ttl),
		logger: logger,
	}
}

// Resolve returns the category for a product name, or the default category
// on any miss.
func (r *CategoryResolver) Resolve(ctx context.Context, merchantID, productName string) string {
	if productName == "" {
		return models.DefaultCategory
	}

	key := merchantID + "\x00" + productName
	if category, ok := r.cache.Get(key); ok {
		return category
	}

	category, err := r.repo.FindCategory(ctx, merchantID, productName)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			// Storage errors degrade to the default rather than failing the
			// caller; the next resolution retries.
			r.logger.Warn("category lookup failed",
				"merchant_id", merchantID,
				"product_name", productName,
				"error", err,
			)
			return models.DefaultCategory
		}
		category = models.DefaultCategory
	}

	r.cache.Add(key, category)
	return category
}
