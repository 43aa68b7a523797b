package repository

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/merchantkit/paysync/internal/config"
	"github.com/merchantkit/paysync/internal/db"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := sqlDB.PingContext(context.Background()); err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	database := db.NewTestDB(sqlDB)
	runMigrations(t, database)

	return database
}

func runMigrations(t *testing.T, database *db.DB) {
	t.Helper()

	migrationPath := filepath.Join("..", "..", "internal", "db", "migrations", "000001_init.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath) // #nosec G304
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}

	if _, err := database.ExecContext(context.Background(), string(sqlBytes)); err != nil {
		t.Logf("migration execution completed (tables may already exist): %v", err)
	}
}

func cleanupTestDB(t *testing.T, database *db.DB) {
	t.Helper()
	if err := database.Close(); err != nil {
		log.Printf("failed to close test database: %v", err)
	}
}

func truncateTables(t *testing.T, database *db.DB) {
	t.Helper()

	_, err := database.ExecContext(context.Background(), `
		TRUNCATE transactions, invoices, product_category_mappings,
		         sync_runs, merchant_credentials, webhook_events
	`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func seedCredential(t *testing.T, database *db.DB, merchantID string, active bool) {
	t.Helper()

	_, err := database.ExecContext(context.Background(), `
		INSERT INTO merchant_credentials (merchant_id, consumer_key, consumer_secret, webhook_secret, environment, active)
		VALUES ($1, 'ck_test', 'cs_test', 'whsec_test', 'sandbox', $2)
		ON CONFLICT (merchant_id) DO UPDATE SET active = EXCLUDED.active
	`, merchantID, active)
	if err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}
}

func sampleTransaction(paymentID string) *models.Transaction {
	return &models.Transaction{
		MerchantID: "default",
		PaymentID:  paymentID,
		Amount:     decimal.RequireFromString("125.50"),
		Currency:   "USD",
		Status:     string(models.TransactionStatusApproved),
		RawPayload: []byte(`{"id":"` + paymentID + `"}`),
	}
}

func sampleInvoice(invoiceID string) *models.Invoice {
	return &models.Invoice{
		MerchantID: "default",
		InvoiceID:  invoiceID,
		Currency:   "USD",
		RawPayload: []byte(`{"id":"` + invoiceID + `"}`),
	}
}

func timePtr(ts time.Time) *time.Time {
	return &ts
}
