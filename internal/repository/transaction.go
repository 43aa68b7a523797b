package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/merchantkit/paysync/internal/models"
)

// TransactionRepository defines the interface for transaction data access
type TransactionRepository interface {
	ExistingPaymentIDs(ctx context.Context, paymentIDs []string) (map[string]struct{}, error)
	UpsertBatch(ctx context.Context, transactions []*models.Transaction) error
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	SetProductInfo(ctx context.Context, paymentID, productName, category string) error
}

// transactionRepository implements TransactionRepository
type transactionRepository struct {
	db Querier
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(database Querier) TransactionRepository {
	return &transactionRepository{db: database}
}

// ExistingPaymentIDs returns the subset of the given external payment ids
// that are already stored.
func (r *transactionRepository) ExistingPaymentIDs(ctx context.Context, paymentIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(paymentIDs))
	if len(paymentIDs) == 0 {
		return existing, nil
	}

	query := `SELECT payment_id FROM transactions WHERE payment_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(paymentIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing payment ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows close error is not actionable

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan payment id: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment ids: %w", err)
	}

	return existing, nil
}

// UpsertBatch inserts or updates transactions keyed by payment_id. On
// conflict all remote-sourced fields are replaced, but an established
// invoice link and previously resolved product fields are never cleared.
func (r *transactionRepository) UpsertBatch(ctx context.Context, transactions []*models.Transaction) error {
	query := `
		INSERT INTO transactions (
			merchant_id, payment_id, amount, currency, status, transacted_at,
			customer_name, customer_code, card_brand, card_last4,
			auth_code, auth_message, response_code, tender_type,
			source_channel, settlement_batch, refunded_amount, settled_amount,
			invoice_id, invoice_number, raw_payload
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
		ON CONFLICT (payment_id) DO UPDATE SET
			amount           = EXCLUDED.amount,
			currency         = EXCLUDED.currency,
			status           = EXCLUDED.status,
			transacted_at    = EXCLUDED.transacted_at,
			customer_name    = EXCLUDED.customer_name,
			customer_code    = EXCLUDED.customer_code,
			card_brand       = EXCLUDED.card_brand,
			card_last4       = EXCLUDED.card_last4,
			auth_code        = EXCLUDED.auth_code,
			auth_message     = EXCLUDED.auth_message,
			response_code    = EXCLUDED.response_code,
			tender_type      = EXCLUDED.tender_type,
			source_channel   = EXCLUDED.source_channel,
			settlement_batch = EXCLUDED.settlement_batch,
			refunded_amount  = EXCLUDED.refunded_amount,
			settled_amount   = EXCLUDED.settled_amount,
			invoice_id       = COALESCE(transactions.invoice_id, EXCLUDED.invoice_id),
			invoice_number   = COALESCE(transactions.invoice_number, EXCLUDED.invoice_number),
			raw_payload      = EXCLUDED.raw_payload,
			updated_at       = NOW()
	`

	for _, txn := range transactions {
		_, err := r.db.ExecContext(ctx, query,
			txn.MerchantID,
			txn.PaymentID,
			txn.Amount,
			txn.Currency,
			txn.Status,
			txn.TransactedAt,
			txn.CustomerName,
			txn.CustomerCode,
			txn.CardBrand,
			txn.CardLast4,
			txn.AuthCode,
			txn.AuthMessage,
			txn.ResponseCode,
			txn.TenderType,
			txn.SourceChannel,
			txn.SettlementBatch,
			txn.RefundedAmount,
			txn.SettledAmount,
			txn.InvoiceID,
			txn.InvoiceNumber,
			rawPayloadArg(txn.RawPayload),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert transaction %s: %w", txn.PaymentID, err)
		}
	}

	return nil
}

// FindByPaymentID retrieves a transaction by its external payment id
func (r *transactionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	query := `
		SELECT id, merchant_id, payment_id, amount, currency, status, transacted_at,
		       customer_name, customer_code, card_brand, card_last4,
		       auth_code, auth_message, response_code, tender_type,
		       source_channel, settlement_batch, refunded_amount, settled_amount,
		       invoice_id, invoice_number, product_name, product_category,
		       raw_payload, created_at, updated_at
		FROM transactions
		WHERE payment_id = $1
	`

	var txn models.Transaction
	var rawPayload []byte
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&txn.ID,
		&txn.MerchantID,
		&txn.PaymentID,
		&txn.Amount,
		&txn.Currency,
		&txn.Status,
		&txn.TransactedAt,
		&txn.CustomerName,
		&txn.CustomerCode,
		&txn.CardBrand,
		&txn.CardLast4,
		&txn.AuthCode,
		&txn.AuthMessage,
		&txn.ResponseCode,
		&txn.TenderType,
		&txn.SourceChannel,
		&txn.SettlementBatch,
		&txn.RefundedAmount,
		&txn.SettledAmount,
		&txn.InvoiceID,
		&txn.InvoiceNumber,
		&txn.ProductName,
		&txn.ProductCategory,
		&rawPayload,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by payment id: %w", err)
	}

	txn.RawPayload = rawPayload
	return &txn, nil
}

// SetProductInfo fills the derived product fields on a transaction. It only
// ever writes previously-null fields, which keeps re-runs idempotent.
func (r *transactionRepository) SetProductInfo(ctx context.Context, paymentID, productName, category string) error {
	query := `
		UPDATE transactions
		SET product_name     = COALESCE(product_name, $2),
		    product_category = COALESCE(product_category, $3),
		    updated_at       = NOW()
		WHERE payment_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, paymentID, productName, category)
	if err != nil {
		return fmt.Errorf("failed to set product info: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// rawPayloadArg maps an empty payload to NULL instead of invalid JSON.
func rawPayloadArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
