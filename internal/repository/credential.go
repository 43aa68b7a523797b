package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/merchantkit/paysync/internal/models"
)

// CredentialRepository defines the interface for merchant credential access
type CredentialRepository interface {
	FindByMerchantID(ctx context.Context, merchantID string) (*models.MerchantCredential, error)
	Upsert(ctx context.Context, cred *models.MerchantCredential) error
}

// credentialRepository implements CredentialRepository
type credentialRepository struct {
	db Querier
}

// NewCredentialRepository creates a new CredentialRepository
func NewCredentialRepository(database Querier) CredentialRepository {
	return &credentialRepository{db: database}
}

// FindByMerchantID retrieves the active credential for a merchant. A missing
// or inactive credential returns models.ErrNotFound.
func (r *credentialRepository) FindByMerchantID(ctx context.Context, merchantID string) (*models.MerchantCredential, error) {
	query := `
		SELECT merchant_id, consumer_key, consumer_secret, webhook_secret,
		       environment, active, created_at, updated_at
		FROM merchant_credentials
		WHERE merchant_id = $1 AND active = TRUE
	`

	var cred models.MerchantCredential
	err := r.db.QueryRowContext(ctx, query, merchantID).Scan(
		&cred.MerchantID,
		&cred.ConsumerKey,
		&cred.ConsumerSecret,
		&cred.WebhookSecret,
		&cred.Environment,
		&cred.Active,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential for merchant %s: %w", merchantID, err)
	}

	return &cred, nil
}

// Upsert stores a merchant credential, replacing the keys and secrets of an
// existing row. Used by the credential rotation endpoint.
func (r *credentialRepository) Upsert(ctx context.Context, cred *models.MerchantCredential) error {
	query := `
		INSERT INTO merchant_credentials (merchant_id, consumer_key, consumer_secret, webhook_secret, environment, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (merchant_id) DO UPDATE SET
			consumer_key = EXCLUDED.consumer_key,
			consumer_secret = EXCLUDED.consumer_secret,
			webhook_secret = EXCLUDED.webhook_secret,
			environment = EXCLUDED.environment,
			active = EXCLUDED.active,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		cred.MerchantID,
		cred.ConsumerKey,
		cred.ConsumerSecret,
		cred.WebhookSecret,
		cred.Environment,
		cred.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential for merchant %s: %w", cred.MerchantID, err)
	}

	return nil
}
