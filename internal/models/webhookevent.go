package models

import (
	"database/sql"
	"time"
)

// Webhook event outcomes
const (
	WebhookOutcomeSuccess = "success"
	WebhookOutcomeError   = "error"
)

// WebhookEvent records a processed push notification, keyed by the
// processor's event id. Duplicate deliveries replay the stored response
// instead of reprocessing.
type WebhookEvent struct {
	ReceivedAt     time.Time      `db:"received_at"`
	EventID        string         `db:"event_id"`
	Outcome        string         `db:"outcome"`
	ResponseBody   string         `db:"response_body"`
	MerchantID     sql.NullString `db:"merchant_id"`
	EventType      sql.NullString `db:"event_type"`
	PaymentID      sql.NullString `db:"payment_id"`
	ResponseStatus int            `db:"response_status"`
}
