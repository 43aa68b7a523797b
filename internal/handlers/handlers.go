// Package handlers implements HTTP handlers for the sync API.
package handlers

import (
	"log/slog"

	"github.com/merchantkit/paysync/internal/repository"
	"github.com/merchantkit/paysync/internal/service"
)

// Handler serves the sync, webhook, invoice and credential endpoints
type Handler struct {
	engine        service.Syncer
	ingestor      service.EventHandler
	runRepo       repository.SyncRunRepository
	invoiceRepo   repository.InvoiceRepository
	credRepo      repository.CredentialRepository
	credentials   *service.CredentialResolver
	healthChecker service.HealthChecker
	logger        *slog.Logger
	defaultCount  int
}

// NewHandler creates a new Handler with injected service dependencies.
func NewHandler(
	engine service.Syncer,
	ingestor service.EventHandler,
	runRepo repository.SyncRunRepository,
	invoiceRepo repository.InvoiceRepository,
	credRepo repository.CredentialRepository,
	credentials *service.CredentialResolver,
	healthChecker service.HealthChecker,
	defaultCount int,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		engine:        engine,
		ingestor:      ingestor,
		runRepo:       runRepo,
		invoiceRepo:   invoiceRepo,
		credRepo:      credRepo,
		credentials:   credentials,
		healthChecker: healthChecker,
		defaultCount:  defaultCount,
		logger:        logger,
	}
}
