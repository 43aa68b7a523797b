package service

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/merchantkit/paysync/internal/config"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/processor"
	"github.com/merchantkit/paysync/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
)

// mockProcessorClient is a testify mock of the ProcessorClient interface.
// CallCount is backed by a plain counter rather than an expectation so
// tests do not have to predeclare how often progress is recorded.
type mockProcessorClient struct {
	mock.Mock
	calls atomic.Int64
}

func newMockProcessorClient(t *testing.T) *mockProcessorClient {
	m := &mockProcessorClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockProcessorClient) ListPayments(ctx context.Context, limit, offset int, createdFilter string) (*processor.PaymentPage, error) {
	m.calls.Add(1)
	args := m.Called(ctx, limit, offset, createdFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.PaymentPage), args.Error(1)
}

func (m *mockProcessorClient) GetPayment(ctx context.Context, id string) (*processor.PaymentRecord, error) {
	m.calls.Add(1)
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.PaymentRecord), args.Error(1)
}

func (m *mockProcessorClient) ListInvoices(ctx context.Context, limit, offset int) (*processor.InvoicePage, error) {
	m.calls.Add(1)
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.InvoicePage), args.Error(1)
}

func (m *mockProcessorClient) GetInvoice(ctx context.Context, id string) (*processor.InvoiceRecord, error) {
	m.calls.Add(1)
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.InvoiceRecord), args.Error(1)
}

func (m *mockProcessorClient) CallCount() int64 {
	return m.calls.Load()
}

var _ ProcessorClient = (*mockProcessorClient)(nil)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// engineMocks bundles the dependencies of an Engine under test.
type engineMocks struct {
	txRepo   *mocks.MockTransactionRepository
	invRepo  *mocks.MockInvoiceRepository
	runRepo  *mocks.MockSyncRunRepository
	credRepo *mocks.MockCredentialRepository
	catRepo  *mocks.MockCategoryRepository
	client   *mockProcessorClient
}

func newTestEngine(t *testing.T, batchSize int) (*Engine, *engineMocks) {
	logger := newTestLogger()
	m := &engineMocks{
		txRepo:   mocks.NewMockTransactionRepository(t),
		invRepo:  mocks.NewMockInvoiceRepository(t),
		runRepo:  mocks.NewMockSyncRunRepository(t),
		credRepo: mocks.NewMockCredentialRepository(t),
		catRepo:  mocks.NewMockCategoryRepository(t),
		client:   newMockProcessorClient(t),
	}

	cfg := &config.SyncConfig{
		BatchSize:         batchSize,
		BatchDelay:        0,
		DefaultPullCount:  100,
		CredentialTTL:     time.Minute,
		CategoryTTL:       time.Minute,
		CategoryCacheSize: 16,
	}

	engine := NewEngine(
		NewCredentialResolver(m.credRepo, cfg.CredentialTTL),
		NewCategoryResolver(m.catRepo, cfg.CategoryCacheSize, cfg.CategoryTTL, logger),
		NewAuditRecorder(m.runRepo, logger),
		m.txRepo,
		m.invRepo,
		func(cred *models.MerchantCredential) ProcessorClient { return m.client },
		cfg,
		logger,
	)
	return engine, m
}

func testCredential(merchantID string) *models.MerchantCredential {
	return &models.MerchantCredential{
		MerchantID:     merchantID,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		WebhookSecret:  "whsec_test",
		Environment:    models.EnvironmentSandbox,
		Active:         true,
	}
}

// expectRunLifecycle wires the sync run repository for a normal run and
// returns the id that Create will assign.
func (m *engineMocks) expectRunLifecycle(status models.RunStatus) uuid.UUID {
	runID := uuid.New()
	m.runRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.SyncRun")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.SyncRun).ID = runID
		}).
		Return(nil).Once()
	m.runRepo.On("Finish", mock.Anything, runID, status, mock.AnythingOfType("string")).
		Return(nil).Once()
	return runID
}

func (m *engineMocks) expectProgressUpdates() {
	m.runRepo.On("UpdateProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Maybe()
}

// liveContext matches a context that has not been cancelled, the way
// database/sql would require for the write to succeed.
func liveContext() any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	})
}

func strPtr(s string) *string { return &s }
