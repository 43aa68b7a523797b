package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/merchantkit/paysync/internal/models"
)

// WebhookEventRepository defines the interface for webhook replay-protection
// storage
type WebhookEventRepository interface {
	Get(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	Store(ctx context.Context, event *models.WebhookEvent) error
}

// webhookEventRepository implements WebhookEventRepository
type webhookEventRepository struct {
	db Querier
}

// NewWebhookEventRepository creates a new WebhookEventRepository
func NewWebhookEventRepository(database Querier) WebhookEventRepository {
	return &webhookEventRepository{db: database}
}

// Get retrieves a processed event by id. Returns (nil, nil) when the event
// has not been seen, so callers can distinguish a miss from a storage error.
func (r *webhookEventRepository) Get(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	query := `
		SELECT event_id, merchant_id, event_type, payment_id, outcome,
		       response_status, response_body, received_at
		FROM webhook_events
		WHERE event_id = $1
	`

	var event models.WebhookEvent
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.EventID,
		&event.MerchantID,
		&event.EventType,
		&event.PaymentID,
		&event.Outcome,
		&event.ResponseStatus,
		&event.ResponseBody,
		&event.ReceivedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &event, nil
}

// Store records a processed event. A concurrent duplicate insert is a
// no-op: the first write wins and the duplicate delivery replays it.
func (r *webhookEventRepository) Store(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			event_id, merchant_id, event_type, payment_id, outcome,
			response_status, response_body
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.MerchantID,
		event.EventType,
		event.PaymentID,
		event.Outcome,
		event.ResponseStatus,
		event.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("failed to store webhook event: %w", err)
	}

	return nil
}
