package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/processor"
	"github.com/shopspring/decimal"
)

// Timestamp layouts the processor has been observed to emit.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// transformPayment maps a remote payment payload to the storage schema.
// The mapping is deterministic: monetary strings are parsed to decimals,
// absent optional fields stay NULL, and unrecognized statuses pass through
// verbatim. A malformed record returns a validation error and is skipped by
// the caller.
//
// When a payload carries multiple invoice ids only the first becomes the
// transaction's link. There is no defined policy for multi-invoice
// settlements yet; the remaining ids are still collected for invoice
// fetching so those invoices are not lost.
func transformPayment(merchantID string, rec *processor.PaymentRecord) (*models.Transaction, error) {
	if rec.ID == "" {
		return nil, validationError("payment record has no id")
	}

	amount, err := decimal.NewFromString(rec.Amount)
	if err != nil {
		return nil, validationError(fmt.Sprintf("payment %s: unparseable amount %q", rec.ID, rec.Amount))
	}
	if amount.IsNegative() {
		return nil, validationError(fmt.Sprintf("payment %s: negative amount %s", rec.ID, rec.Amount))
	}

	refunded, err := optionalAmount(rec.RefundedAmount)
	if err != nil {
		return nil, validationError(fmt.Sprintf("payment %s: bad refunded amount: %v", rec.ID, err))
	}
	settled, err := optionalAmount(rec.SettledAmount)
	if err != nil {
		return nil, validationError(fmt.Sprintf("payment %s: bad settled amount: %v", rec.ID, err))
	}

	status := rec.Status
	if status == "" {
		status = string(models.TransactionStatusUnknown)
	}
	currency := rec.Currency
	if currency == "" {
		currency = "USD"
	}

	txn := &models.Transaction{
		MerchantID:      merchantID,
		PaymentID:       rec.ID,
		Amount:          amount,
		Currency:        currency,
		Status:          status,
		TransactedAt:    optionalTime(rec.TransactionTime),
		CustomerName:    optionalString(rec.CustomerName),
		CustomerCode:    optionalString(rec.CustomerCode),
		CardBrand:       optionalString(rec.CardBrand),
		CardLast4:       optionalString(rec.CardLast4),
		AuthCode:        optionalString(rec.AuthCode),
		AuthMessage:     optionalString(rec.AuthMessage),
		ResponseCode:    optionalString(rec.ResponseCode),
		TenderType:      optionalString(rec.TenderType),
		SourceChannel:   optionalString(rec.SourceChannel),
		SettlementBatch: optionalString(rec.SettlementBatch),
		RefundedAmount:  refunded,
		SettledAmount:   settled,
		InvoiceNumber:   optionalString(rec.InvoiceNumber),
		RawPayload:      rec.Raw,
	}

	if len(rec.InvoiceIDs) > 0 && rec.InvoiceIDs[0] != "" {
		txn.InvoiceID = sql.NullString{String: rec.InvoiceIDs[0], Valid: true}
	}

	return txn, nil
}

// transformInvoice maps a remote invoice payload to the storage schema. The
// provider_status workflow field is left empty; the repository initializes
// it on first insert and never touches it afterwards.
func transformInvoice(merchantID string, rec *processor.InvoiceRecord) (*models.Invoice, error) {
	if rec.ID == "" {
		return nil, validationError("invoice record has no id")
	}

	total, err := optionalAmount(rec.Total)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invoice %s: bad total: %v", rec.ID, err))
	}
	paid, err := optionalAmount(rec.PaidTotal)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invoice %s: bad paid total: %v", rec.ID, err))
	}
	balance, err := optionalAmount(rec.Balance)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invoice %s: bad balance: %v", rec.ID, err))
	}

	currency := "USD"
	if rec.Currency != nil && *rec.Currency != "" {
		currency = *rec.Currency
	}

	return &models.Invoice{
		MerchantID:    merchantID,
		InvoiceID:     rec.ID,
		InvoiceNumber: optionalString(rec.InvoiceNumber),
		CustomerName:  optionalString(rec.CustomerName),
		CustomerID:    optionalString(rec.CustomerID),
		TotalAmount:   total,
		PaidAmount:    paid,
		BalanceAmount: balance,
		Status:        optionalString(rec.Status),
		Currency:      currency,
		InvoiceDate:   optionalTime(rec.InvoiceDate),
		DueDate:       optionalTime(rec.DueDate),
		RawPayload:    rec.Raw,
	}, nil
}

// firstProductName returns the first line item's product name, or empty when
// the invoice has no line items. An empty result skips category resolution
// without error.
func firstProductName(rec *processor.InvoiceRecord) string {
	if len(rec.LineItems) == 0 {
		return ""
	}
	return rec.LineItems[0].Name
}

func optionalString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func optionalAmount(value *string) (decimal.NullDecimal, error) {
	if value == nil || *value == "" {
		return decimal.NullDecimal{}, nil
	}
	amount, err := decimal.NewFromString(*value)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("unparseable amount %q", *value)
	}
	if amount.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("negative amount %q", *value)
	}
	return decimal.NullDecimal{Decimal: amount, Valid: true}, nil
}

// optionalTime parses a remote timestamp, trying the known layouts. An
// unparseable value maps to NULL rather than an error: a bad timestamp on
// an otherwise valid record should not block persistence.
func optionalTime(value *string) sql.NullTime {
	if value == nil || *value == "" {
		return sql.NullTime{}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, *value); err == nil {
			return sql.NullTime{Time: ts, Valid: true}
		}
	}
	return sql.NullTime{}
}

func validationError(message string) error {
	return &ServiceError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}
