package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/processor"
)

// ProcessorClient is the remote payment API surface the engine and ingestor
// consume. *processor.Client is the production implementation; tests
// substitute a mock.
type ProcessorClient interface {
	ListPayments(ctx context.Context, limit, offset int, createdFilter string) (*processor.PaymentPage, error)
	GetPayment(ctx context.Context, id string) (*processor.PaymentRecord, error)
	ListInvoices(ctx context.Context, limit, offset int) (*processor.InvoicePage, error)
	GetInvoice(ctx context.Context, id string) (*processor.InvoiceRecord, error)
	CallCount() int64
}

// ClientFactory builds a ProcessorClient for a resolved merchant credential
type ClientFactory func(cred *models.MerchantCredential) ProcessorClient

// Syncer runs reconciliation pulls against the remote processor
type Syncer interface {
	SyncTransactions(ctx context.Context, merchantID string, count int, dateFilter string) (*SyncResult, error)
}

// EventHandler processes inbound webhook push notifications
type EventHandler interface {
	HandleEvent(ctx context.Context, rawBody []byte, signature string) error
}

// HealthChecker reports storage liveness
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Auditor records synchronization runs
type Auditor interface {
	Start(ctx context.Context, merchantID string, runType models.RunType) (uuid.UUID, error)
	Update(ctx context.Context, runID uuid.UUID, processed, failed, apiCalls int, lastProcessedID string) error
	Finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, errorMessage string) error
}

// Ensure concrete types implement interfaces
var (
	_ ProcessorClient = (*processor.Client)(nil)
	_ Syncer          = (*Engine)(nil)
	_ EventHandler    = (*Ingestor)(nil)
	_ Auditor         = (*AuditRecorder)(nil)
)
