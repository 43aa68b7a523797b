package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/merchantkit/paysync/internal/config"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/processor"
	"github.com/merchantkit/paysync/internal/repository"
)

// SyncResult aggregates the outcome of one reconciliation run. Success is
// true only when no record-level or batch-level errors were collected; a
// partially failed run reports exactly which counts succeeded.
type SyncResult struct {
	RunID                 uuid.UUID `json:"run_id"`
	TransactionsProcessed int       `json:"transactions_processed"`
	TransactionsFailed    int       `json:"transactions_failed"`
	AlreadyExisting       int       `json:"already_existing"`
	InvoicesProcessed     int       `json:"invoices_processed"`
	Errors                []string  `json:"errors"`
	Success               bool      `json:"success"`
	Note                  string    `json:"note,omitempty"`
}

// Engine orchestrates reconciliation pulls: fetch pages from the processor,
// diff against storage, upsert new transactions in batches, attach invoices
// embedded in the payment payloads, resolve product categories, and record
// audit counts. All writes are conflict-key upserts, so a concurrent
// webhook processing the same payment converges to the same state.
type Engine struct {
	credentials *CredentialResolver
	categories  *CategoryResolver
	audit       *AuditRecorder
	txRepo      repository.TransactionRepository
	invRepo     repository.InvoiceRepository
	newClient   ClientFactory
	logger      *slog.Logger
	batchSize   int
	batchDelay  time.Duration
}

// NewEngine creates a reconciliation Engine.
func NewEngine(
	credentials *CredentialResolver,
	categories *CategoryResolver,
	audit *AuditRecorder,
	txRepo repository.TransactionRepository,
	invRepo repository.InvoiceRepository,
	newClient ClientFactory,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		credentials: credentials,
		categories:  categories,
		audit:       audit,
		txRepo:      txRepo,
		invRepo:     invRepo,
		newClient:   newClient,
		logger:      logger,
		batchSize:   cfg.BatchSize,
		batchDelay:  cfg.BatchDelay,
	}
}

// SyncTransactions pulls up to count transactions (optionally filtered by
// created date) and reconciles them into storage. Record- and batch-level
// failures are accumulated into the result; only a credential failure or an
// unrecoverable top-level error aborts the run, and batches already
// committed stay committed.
func (e *Engine) SyncTransactions(ctx context.Context, merchantID string, count int, dateFilter string) (*SyncResult, error) {
	runType := models.RunTypeFull
	if dateFilter != "" {
		runType = models.RunTypeIncremental
	}

	runID, err := e.audit.Start(ctx, merchantID, runType)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{RunID: runID}

	cred, err := e.credentials.Resolve(ctx, merchantID)
	if err != nil {
		e.finish(ctx, runID, models.RunStatusFailed, err.Error())
		return nil, err
	}
	client := e.newClient(cred)

	records, err := e.fetchPayments(ctx, client, count, dateFilter)
	if err != nil {
		e.finish(ctx, runID, models.RunStatusFailed, err.Error())
		return nil, err
	}

	if len(records) == 0 {
		result.Success = true
		result.Note = "no transactions returned by processor"
		e.updateProgress(ctx, runID, 0, 0, client, "")
		e.finish(ctx, runID, models.RunStatusCompleted, "")
		return result, nil
	}

	paymentIDs := make([]string, 0, len(records))
	for i := range records {
		paymentIDs = append(paymentIDs, records[i].ID)
	}

	existing, err := e.txRepo.ExistingPaymentIDs(ctx, paymentIDs)
	if err != nil {
		wrapped := &ServiceError{Code: ErrCodePersistence, Message: "failed to compute existing-id set", Err: err}
		e.finish(ctx, runID, models.RunStatusFailed, wrapped.Error())
		return nil, wrapped
	}

	result.TransactionsProcessed = len(records)
	result.AlreadyExisting = len(existing)

	var newTxns []*models.Transaction
	for i := range records {
		if _, ok := existing[records[i].ID]; ok {
			continue
		}
		txn, terr := transformPayment(merchantID, &records[i])
		if terr != nil {
			result.TransactionsFailed++
			result.Errors = append(result.Errors, terr.Error())
			continue
		}
		newTxns = append(newTxns, txn)
	}

	cancelled := e.upsertInBatches(ctx, runID, client, newTxns, result)
	if cancelled {
		result.Success = len(result.Errors) == 0
		e.finish(ctx, runID, models.RunStatusCancelled, "cancelled at batch boundary")
		return result, ctx.Err()
	}

	// Invoice linkage comes from the payment payloads themselves, so no
	// secondary lookup join is needed to find which invoices to fetch.
	productNames := e.syncLinkedInvoices(ctx, client, merchantID, records, result)

	e.fillProductCategories(ctx, merchantID, records, productNames, result)

	result.Success = len(result.Errors) == 0

	e.updateProgress(ctx, runID, 0, 0, client, "")
	errText := ""
	if !result.Success {
		errText = joinErrors(result.Errors)
	}
	e.finish(ctx, runID, models.RunStatusCompleted, errText)

	e.logger.Info("sync completed",
		"run_id", runID,
		"merchant_id", merchantID,
		"transactions_processed", result.TransactionsProcessed,
		"already_existing", result.AlreadyExisting,
		"transactions_failed", result.TransactionsFailed,
		"invoices_processed", result.InvoicesProcessed,
		"errors", len(result.Errors),
	)
	return result, nil
}

// fetchPayments pages through the list endpoint until count records are
// collected or a short page signals the end of the dataset.
func (e *Engine) fetchPayments(ctx context.Context, client ProcessorClient, count int, dateFilter string) ([]processor.PaymentRecord, error) {
	var records []processor.PaymentRecord

	offset := 0
	for len(records) < count {
		limit := count - len(records)
		if limit > e.batchSize {
			limit = e.batchSize
		}

		page, err := client.ListPayments(ctx, limit, offset, dateFilter)
		if err != nil {
			return nil, wrapRemoteError("failed to list payments", err)
		}

		records = append(records, page.Records...)
		if len(page.Records) < limit {
			break
		}
		offset += len(page.Records)
	}

	return records, nil
}

// upsertInBatches writes new transactions in bounded batches with a short
// delay between them. A failed batch counts its records as failed and does
// not abort the following batches. Returns true if the context was
// cancelled at a batch boundary.
func (e *Engine) upsertInBatches(ctx context.Context, runID uuid.UUID, client ProcessorClient, txns []*models.Transaction, result *SyncResult) bool {
	for start := 0; start < len(txns); start += e.batchSize {
		if ctx.Err() != nil {
			return true
		}
		if start > 0 && e.batchDelay > 0 {
			time.Sleep(e.batchDelay)
		}

		end := start + e.batchSize
		if end > len(txns) {
			end = len(txns)
		}
		batch := txns[start:end]

		if err := e.txRepo.UpsertBatch(ctx, batch); err != nil {
			result.TransactionsFailed += len(batch)
			result.Errors = append(result.Errors,
				fmt.Sprintf("batch upsert failed (%d records): %v", len(batch), err))
			e.updateProgress(ctx, runID, 0, len(batch), client, "")
			continue
		}

		e.updateProgress(ctx, runID, len(batch), 0, client, batch[len(batch)-1].PaymentID)
	}
	return false
}

// syncLinkedInvoices extracts the unique invoice ids embedded in the
// fetched payment payloads, fetches the ones not yet stored, and upserts
// them. It returns the product name per invoice id (from the first line
// item of each invoice seen this run, falling back to the stored raw
// payload) for category resolution.
func (e *Engine) syncLinkedInvoices(ctx context.Context, client ProcessorClient, merchantID string, records []processor.PaymentRecord, result *SyncResult) map[string]string {
	var invoiceIDs []string
	seen := make(map[string]struct{})
	for i := range records {
		for _, invoiceID := range records[i].InvoiceIDs {
			if invoiceID == "" {
				continue
			}
			if _, ok := seen[invoiceID]; ok {
				continue
			}
			seen[invoiceID] = struct{}{}
			invoiceIDs = append(invoiceIDs, invoiceID)
		}
	}

	productNames := make(map[string]string, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return productNames
	}

	existing, err := e.invRepo.ExistingInvoiceIDs(ctx, invoiceIDs)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("failed to compute existing invoice set: %v", err))
		return productNames
	}

	for _, invoiceID := range invoiceIDs {
		if _, ok := existing[invoiceID]; ok {
			if name := e.storedProductName(ctx, invoiceID); name != "" {
				productNames[invoiceID] = name
			}
			continue
		}

		name, err := e.fetchAndUpsertInvoice(ctx, client, merchantID, invoiceID)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.InvoicesProcessed++
		if name != "" {
			productNames[invoiceID] = name
		}
	}

	return productNames
}

// fetchAndUpsertInvoice pulls one invoice detail and upserts it, returning
// the first line item's product name. The webhook ingestor shares this path
// for single-record invoice attachment.
func (e *Engine) fetchAndUpsertInvoice(ctx context.Context, client ProcessorClient, merchantID, invoiceID string) (string, error) {
	detail, err := client.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", wrapRemoteError(fmt.Sprintf("failed to fetch invoice %s", invoiceID), err)
	}

	invoice, err := transformInvoice(merchantID, detail)
	if err != nil {
		return "", err
	}

	if err := e.invRepo.Upsert(ctx, invoice); err != nil {
		return "", &ServiceError{
			Code:    ErrCodePersistence,
			Message: "failed to upsert invoice " + invoiceID,
			Err:     err,
		}
	}

	return firstProductName(detail), nil
}

// storedProductName recovers the first line item's product name from an
// already-stored invoice's raw payload.
func (e *Engine) storedProductName(ctx context.Context, invoiceID string) string {
	invoice, err := e.invRepo.FindByInvoiceID(ctx, invoiceID)
	if err != nil || len(invoice.RawPayload) == 0 {
		return ""
	}

	var detail processor.InvoiceRecord
	if err := json.Unmarshal(invoice.RawPayload, &detail); err != nil {
		return ""
	}
	return firstProductName(&detail)
}

// fillProductCategories resolves and attaches product/category fields for
// transactions whose linked invoice yielded a product name. The update only
// fills previously-null columns, so re-running is safe.
func (e *Engine) fillProductCategories(ctx context.Context, merchantID string, records []processor.PaymentRecord, productNames map[string]string, result *SyncResult) {
	for i := range records {
		rec := &records[i]
		if len(rec.InvoiceIDs) == 0 {
			continue
		}

		productName := productNames[rec.InvoiceIDs[0]]
		if productName == "" {
			// Invoice absent or has no line items; nothing to resolve.
			continue
		}

		category := e.categories.Resolve(ctx, merchantID, productName)
		if err := e.txRepo.SetProductInfo(ctx, rec.ID, productName, category); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("failed to set product info on %s: %v", rec.ID, err))
		}
	}
}

// syncSinglePayment applies the per-record reconciliation path for one
// payment id: fetch the authoritative detail, upsert the transaction,
// attach a missing invoice, and fill product fields. The webhook ingestor
// drives this after signature verification.
func (e *Engine) syncSinglePayment(ctx context.Context, client ProcessorClient, merchantID, paymentID string) error {
	detail, err := client.GetPayment(ctx, paymentID)
	if err != nil {
		return wrapRemoteError(fmt.Sprintf("failed to fetch payment %s", paymentID), err)
	}

	txn, err := transformPayment(merchantID, detail)
	if err != nil {
		return err
	}

	if err := e.txRepo.UpsertBatch(ctx, []*models.Transaction{txn}); err != nil {
		return &ServiceError{
			Code:    ErrCodePersistence,
			Message: "failed to upsert transaction " + paymentID,
			Err:     err,
		}
	}

	if len(detail.InvoiceIDs) == 0 || detail.InvoiceIDs[0] == "" {
		return nil
	}
	invoiceID := detail.InvoiceIDs[0]

	existing, err := e.invRepo.ExistingInvoiceIDs(ctx, []string{invoiceID})
	if err != nil {
		return &ServiceError{
			Code:    ErrCodePersistence,
			Message: "failed to check invoice " + invoiceID,
			Err:     err,
		}
	}

	productName := ""
	if _, ok := existing[invoiceID]; ok {
		productName = e.storedProductName(ctx, invoiceID)
	} else {
		productName, err = e.fetchAndUpsertInvoice(ctx, client, merchantID, invoiceID)
		if err != nil {
			return err
		}
	}

	if productName != "" {
		category := e.categories.Resolve(ctx, merchantID, productName)
		if err := e.txRepo.SetProductInfo(ctx, paymentID, productName, category); err != nil {
			return &ServiceError{
				Code:    ErrCodePersistence,
				Message: "failed to set product info on " + paymentID,
				Err:     err,
			}
		}
	}

	return nil
}

// updateProgress records batch progress; audit failures are logged by the
// recorder and do not interrupt the run.
func (e *Engine) updateProgress(ctx context.Context, runID uuid.UUID, processed, failed int, client ProcessorClient, lastID string) {
	_ = e.audit.Update(ctx, runID, processed, failed, int(client.CallCount()), lastID) //nolint:errcheck // logged by recorder
}

// finish finalizes the audit record. The write runs on a detached context:
// a cancelled run must still reach its terminal status, and a failure here
// must not mask the run's own outcome.
func (e *Engine) finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, errText string) {
	ctx = context.WithoutCancel(ctx)
	if err := e.audit.Finish(ctx, runID, status, errText); err != nil {
		e.logger.Error("failed to finalize sync run", "run_id", runID, "error", err)
	}
}

// wrapRemoteError classifies a client failure into the service taxonomy.
func wrapRemoteError(message string, err error) error {
	code := ErrCodeRemoteAPI
	if processor.IsTransient(err) {
		code = ErrCodeTransient
	}
	return &ServiceError{Code: code, Message: message, Err: err}
}

// joinErrors compacts accumulated error strings for the audit record.
func joinErrors(errs []string) string {
	const maxLen = 2000
	joined := strings.Join(errs, "; ")
	if len(joined) > maxLen {
		joined = joined[:maxLen] + "..."
	}
	return joined
}
