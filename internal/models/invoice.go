package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider status values for the locally-owned invoice workflow field.
// The remote system knows nothing about this field; sync and webhook upserts
// must never change it once a row exists.
const (
	ProviderStatusPending = "pending"
	ProviderStatusSent    = "sent"
	ProviderStatusFailed  = "failed"
)

// Invoice is the local copy of a processor invoice. InvoiceID is the
// processor-assigned identifier and the conflict key for upserts.
type Invoice struct {
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
	InvoiceDate    sql.NullTime        `db:"invoice_date"`
	DueDate        sql.NullTime        `db:"due_date"`
	MerchantID     string              `db:"merchant_id"`
	InvoiceID      string              `db:"invoice_id"`
	Currency       string              `db:"currency"`
	ProviderStatus string              `db:"provider_status"`
	InvoiceNumber  sql.NullString      `db:"invoice_number"`
	CustomerName   sql.NullString      `db:"customer_name"`
	CustomerID     sql.NullString      `db:"customer_id"`
	Status         sql.NullString      `db:"status"`
	TotalAmount    decimal.NullDecimal `db:"total_amount"`
	PaidAmount     decimal.NullDecimal `db:"paid_amount"`
	BalanceAmount  decimal.NullDecimal `db:"balance_amount"`
	RawPayload     json.RawMessage     `db:"raw_payload"`
	ID             uuid.UUID           `db:"id"`
}
