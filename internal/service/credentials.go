package service

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/repository"
)

const credentialCacheSize = 64

// CredentialResolver resolves per-merchant processor credentials with a
// short-TTL cache. A cache hit returns without I/O; Invalidate evicts a
// merchant immediately after a credential update so the new key takes
// effect before the TTL would expire it.
type CredentialResolver struct {
	repo  repository.CredentialRepository
	cache *expirable.LRU[string, *models.MerchantCredential]
}

// NewCredentialResolver creates a CredentialResolver with the given cache TTL.
func NewCredentialResolver(repo repository.CredentialRepository, ttl time.Duration) *CredentialResolver {
	return &CredentialResolver{
		repo:  repo,
		cache: expirable.NewLRU[string, *models.MerchantCredential](credentialCacheSize, nil, ttl),
	}
}

// Resolve returns the active credential for a merchant. A missing or
// inactive credential is fatal to the calling run.
func (r *CredentialResolver) Resolve(ctx context.Context, merchantID string) (*models.MerchantCredential, error) {
	if cred, ok := r.cache.Get(merchantID); ok {
		return cred, nil
	}

	cred, err := r.repo.FindByMerchantID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, &ServiceError{
				Code:    ErrCodeAuth,
				Message: "no active credential for merchant " + merchantID,
			}
		}
		return nil, &ServiceError{
			Code:    ErrCodePersistence,
			Message: "failed to read merchant credential",
			Err:     err,
		}
	}

	r.cache.Add(merchantID, cred)
	return cred, nil
}

// Invalidate evicts a merchant's cached credential.
func (r *CredentialResolver) Invalidate(merchantID string) {
	r.cache.Remove(merchantID)
}
