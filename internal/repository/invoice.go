package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/merchantkit/paysync/internal/models"
)

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	ExistingInvoiceIDs(ctx context.Context, invoiceIDs []string) (map[string]struct{}, error)
	Upsert(ctx context.Context, invoice *models.Invoice) error
	FindByInvoiceID(ctx context.Context, invoiceID string) (*models.Invoice, error)
	UpdateProviderStatus(ctx context.Context, invoiceID, providerStatus string) error
}

// invoiceRepository implements InvoiceRepository
type invoiceRepository struct {
	db Querier
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(database Querier) InvoiceRepository {
	return &invoiceRepository{db: database}
}

// ExistingInvoiceIDs returns the subset of the given external invoice ids
// that are already stored.
func (r *invoiceRepository) ExistingInvoiceIDs(ctx context.Context, invoiceIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return existing, nil
	}

	query := `SELECT invoice_id FROM invoices WHERE invoice_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(invoiceIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing invoice ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows close error is not actionable

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan invoice id: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice ids: %w", err)
	}

	return existing, nil
}

// Upsert inserts or updates an invoice keyed by invoice_id. The
// provider_status workflow field is initialized on insert and deliberately
// absent from the conflict clause: a human-set value survives every re-sync.
func (r *invoiceRepository) Upsert(ctx context.Context, invoice *models.Invoice) error {
	providerStatus := invoice.ProviderStatus
	if providerStatus == "" {
		providerStatus = models.ProviderStatusPending
	}

	query := `
		INSERT INTO invoices (
			merchant_id, invoice_id, invoice_number, customer_name, customer_id,
			total_amount, paid_amount, balance_amount, status, currency,
			invoice_date, due_date, provider_status, raw_payload
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (invoice_id) DO UPDATE SET
			invoice_number = EXCLUDED.invoice_number,
			customer_name  = EXCLUDED.customer_name,
			customer_id    = EXCLUDED.customer_id,
			total_amount   = EXCLUDED.total_amount,
			paid_amount    = EXCLUDED.paid_amount,
			balance_amount = EXCLUDED.balance_amount,
			status         = EXCLUDED.status,
			currency       = EXCLUDED.currency,
			invoice_date   = EXCLUDED.invoice_date,
			due_date       = EXCLUDED.due_date,
			raw_payload    = EXCLUDED.raw_payload,
			updated_at     = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		invoice.MerchantID,
		invoice.InvoiceID,
		invoice.InvoiceNumber,
		invoice.CustomerName,
		invoice.CustomerID,
		invoice.TotalAmount,
		invoice.PaidAmount,
		invoice.BalanceAmount,
		invoice.Status,
		invoice.Currency,
		invoice.InvoiceDate,
		invoice.DueDate,
		providerStatus,
		rawPayloadArg(invoice.RawPayload),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert invoice %s: %w", invoice.InvoiceID, err)
	}

	return nil
}

// FindByInvoiceID retrieves an invoice by its external invoice id
func (r *invoiceRepository) FindByInvoiceID(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	query := `
		SELECT id, merchant_id, invoice_id, invoice_number, customer_name, customer_id,
		       total_amount, paid_amount, balance_amount, status, currency,
		       invoice_date, due_date, provider_status, raw_payload,
		       created_at, updated_at
		FROM invoices
		WHERE invoice_id = $1
	`

	var invoice models.Invoice
	var rawPayload []byte
	err := r.db.QueryRowContext(ctx, query, invoiceID).Scan(
		&invoice.ID,
		&invoice.MerchantID,
		&invoice.InvoiceID,
		&invoice.InvoiceNumber,
		&invoice.CustomerName,
		&invoice.CustomerID,
		&invoice.TotalAmount,
		&invoice.PaidAmount,
		&invoice.BalanceAmount,
		&invoice.Status,
		&invoice.Currency,
		&invoice.InvoiceDate,
		&invoice.DueDate,
		&invoice.ProviderStatus,
		&rawPayload,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice by invoice id: %w", err)
	}

	invoice.RawPayload = rawPayload
	return &invoice, nil
}

// UpdateProviderStatus writes the locally-owned workflow field. This is the
// only code path that changes provider_status after insert.
func (r *invoiceRepository) UpdateProviderStatus(ctx context.Context, invoiceID, providerStatus string) error {
	query := `
		UPDATE invoices
		SET provider_status = $2,
		    updated_at      = NOW()
		WHERE invoice_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, invoiceID, providerStatus)
	if err != nil {
		return fmt.Errorf("failed to update provider status: %w", err)
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
