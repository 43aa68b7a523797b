package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus enumerates the processor statuses this service reasons
// about. The processor emits more values than these; unrecognized statuses
// are stored verbatim rather than rejected.
type TransactionStatus string

const (
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusDeclined TransactionStatus = "declined"
	TransactionStatusSettled  TransactionStatus = "settled"
	TransactionStatusUnknown  TransactionStatus = "unknown"
)

// Transaction is the local copy of one payment event at the processor.
// PaymentID is the processor-assigned identifier and the conflict key for
// every upsert.
type Transaction struct {
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
	TransactedAt    sql.NullTime        `db:"transacted_at"`
	MerchantID      string              `db:"merchant_id"`
	PaymentID       string              `db:"payment_id"`
	Currency        string              `db:"currency"`
	Status          string              `db:"status"`
	CustomerName    sql.NullString      `db:"customer_name"`
	CustomerCode    sql.NullString      `db:"customer_code"`
	CardBrand       sql.NullString      `db:"card_brand"`
	CardLast4       sql.NullString      `db:"card_last4"`
	AuthCode        sql.NullString      `db:"auth_code"`
	AuthMessage     sql.NullString      `db:"auth_message"`
	ResponseCode    sql.NullString      `db:"response_code"`
	TenderType      sql.NullString      `db:"tender_type"`
	SourceChannel   sql.NullString      `db:"source_channel"`
	SettlementBatch sql.NullString      `db:"settlement_batch"`
	InvoiceID       sql.NullString      `db:"invoice_id"`
	InvoiceNumber   sql.NullString      `db:"invoice_number"`
	ProductName     sql.NullString      `db:"product_name"`
	ProductCategory sql.NullString      `db:"product_category"`
	Amount          decimal.Decimal     `db:"amount"`
	RefundedAmount  decimal.NullDecimal `db:"refunded_amount"`
	SettledAmount   decimal.NullDecimal `db:"settled_amount"`
	RawPayload      json.RawMessage     `db:"raw_payload"`
	ID              uuid.UUID           `db:"id"`
}

// HasInvoice reports whether an invoice link has been established.
func (t *Transaction) HasInvoice() bool {
	return t.InvoiceID.Valid && t.InvoiceID.String != ""
}
