// Package mocks provides testify mock implementations of the repository
// interfaces for service-layer tests.
package mocks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockTransactionRepository is a mock of repository.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

// NewMockTransactionRepository creates a mock that asserts its expectations
// when the test finishes.
func NewMockTransactionRepository(t *testing.T) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransactionRepository) ExistingPaymentIDs(ctx context.Context, paymentIDs []string) (map[string]struct{}, error) {
	args := m.Called(ctx, paymentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockTransactionRepository) UpsertBatch(ctx context.Context, transactions []*models.Transaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SetProductInfo(ctx context.Context, paymentID, productName, category string) error {
	args := m.Called(ctx, paymentID, productName, category)
	return args.Error(0)
}

// MockInvoiceRepository is a mock of repository.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

// NewMockInvoiceRepository creates a mock that asserts its expectations when
// the test finishes.
func NewMockInvoiceRepository(t *testing.T) *MockInvoiceRepository {
	m := &MockInvoiceRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockInvoiceRepository) ExistingInvoiceIDs(ctx context.Context, invoiceIDs []string) (map[string]struct{}, error) {
	args := m.Called(ctx, invoiceIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockInvoiceRepository) Upsert(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByInvoiceID(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) UpdateProviderStatus(ctx context.Context, invoiceID, providerStatus string) error {
	args := m.Called(ctx, invoiceID, providerStatus)
	return args.Error(0)
}

// MockSyncRunRepository is a mock of repository.SyncRunRepository
type MockSyncRunRepository struct {
	mock.Mock
}

// NewMockSyncRunRepository creates a mock that asserts its expectations when
// the test finishes.
func NewMockSyncRunRepository(t *testing.T) *MockSyncRunRepository {
	m := &MockSyncRunRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSyncRunRepository) UpdateProgress(ctx context.Context, runID uuid.UUID, processed, failed, apiCalls int, lastProcessedID string) error {
	args := m.Called(ctx, runID, processed, failed, apiCalls, lastProcessedID)
	return args.Error(0)
}

func (m *MockSyncRunRepository) Finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, errorMessage string) error {
	args := m.Called(ctx, runID, status, errorMessage)
	return args.Error(0)
}

func (m *MockSyncRunRepository) FindByID(ctx context.Context, runID uuid.UUID) (*models.SyncRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncRun), args.Error(1)
}

func (m *MockSyncRunRepository) ListRecent(ctx context.Context, merchantID string, limit int) ([]*models.SyncRun, error) {
	args := m.Called(ctx, merchantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SyncRun), args.Error(1)
}

// MockCredentialRepository is a mock of repository.CredentialRepository
type MockCredentialRepository struct {
	mock.Mock
}

// NewMockCredentialRepository creates a mock that asserts its expectations
// when the test finishes.
func NewMockCredentialRepository(t *testing.T) *MockCredentialRepository {
	m := &MockCredentialRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCredentialRepository) FindByMerchantID(ctx context.Context, merchantID string) (*models.MerchantCredential, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MerchantCredential), args.Error(1)
}

func (m *MockCredentialRepository) Upsert(ctx context.Context, cred *models.MerchantCredential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

// MockCategoryRepository is a mock of repository.CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

// NewMockCategoryRepository creates a mock that asserts its expectations
// when the test finishes.
func NewMockCategoryRepository(t *testing.T) *MockCategoryRepository {
	m := &MockCategoryRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCategoryRepository) FindCategory(ctx context.Context, merchantID, productName string) (string, error) {
	args := m.Called(ctx, merchantID, productName)
	return args.String(0), args.Error(1)
}

// MockWebhookEventRepository is a mock of repository.WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

// NewMockWebhookEventRepository creates a mock that asserts its expectations
// when the test finishes.
func NewMockWebhookEventRepository(t *testing.T) *MockWebhookEventRepository {
	m := &MockWebhookEventRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockWebhookEventRepository) Get(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) Store(ctx context.Context, event *models.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
