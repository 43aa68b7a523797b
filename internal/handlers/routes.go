package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/merchantkit/paysync/internal/api"
	"github.com/merchantkit/paysync/internal/config"
	"github.com/merchantkit/paysync/internal/db"
	"github.com/merchantkit/paysync/internal/middleware"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/processor"
	"github.com/merchantkit/paysync/internal/repository"
	"github.com/merchantkit/paysync/internal/service"
)

// NewRouter wires repositories, services and routes. The returned Syncer is
// shared with the scheduler so periodic and on-demand syncs go through the
// same engine.
func NewRouter(
	database *db.DB,
	cfg *config.Config,
	logger *slog.Logger,
) (http.Handler, service.Syncer) {
	txRepo := repository.NewTransactionRepository(database)
	invoiceRepo := repository.NewInvoiceRepository(database)
	runRepo := repository.NewSyncRunRepository(database)
	credRepo := repository.NewCredentialRepository(database)
	catRepo := repository.NewCategoryRepository(database)
	eventRepo := repository.NewWebhookEventRepository(database)

	credentials := service.NewCredentialResolver(credRepo, cfg.Sync.CredentialTTL)
	categories := service.NewCategoryResolver(catRepo, cfg.Sync.CategoryCacheSize, cfg.Sync.CategoryTTL, logger)
	audit := service.NewAuditRecorder(runRepo, logger)

	newClient := func(cred *models.MerchantCredential) service.ProcessorClient {
		return processor.New(&cfg.Processor, *cred, logger)
	}

	engine := service.NewEngine(credentials, categories, audit, txRepo, invoiceRepo, newClient, &cfg.Sync, logger)
	ingestor := service.NewIngestor(credentials, engine, audit, newClient, logger)

	handler := NewHandler(engine, ingestor, runRepo, invoiceRepo, credRepo, credentials, database, cfg.Sync.DefaultPullCount, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", handler.GetHealth)
	api.RegisterDocsRoutes(r)

	r.With(middleware.WebhookDedup(eventRepo, logger)).
		Post("/webhooks/processor", handler.ReceiveWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync/transactions", handler.TriggerSync)
		r.Get("/sync/runs", handler.ListSyncRuns)
		r.Get("/sync/runs/{runID}", handler.GetSyncRun)
		r.Get("/invoices/{invoiceID}", handler.GetInvoice)
		r.Put("/invoices/{invoiceID}/provider-status", handler.UpdateProviderStatus)
		r.Put("/credentials/{merchantID}", handler.UpsertCredential)
	})

	return r, engine
}
