package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/merchantkit/paysync/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceRepository_Upsert(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)
	truncateTables(t, database)

	repo := NewInvoiceRepository(database)
	ctx := context.Background()

	t.Run("insert initializes provider status to pending", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, sampleInvoice("inv_new")))

		stored, err := repo.FindByInvoiceID(ctx, "inv_new")
		require.NoError(t, err)
		assert.Equal(t, models.ProviderStatusPending, stored.ProviderStatus)
	})

	t.Run("re-upsert updates remote fields", func(t *testing.T) {
		inv := sampleInvoice("inv_update")
		require.NoError(t, repo.Upsert(ctx, inv))

		inv.Status = sql.NullString{String: "paid", Valid: true}
		inv.PaidAmount = decimal.NullDecimal{Decimal: decimal.RequireFromString("80.00"), Valid: true}
		require.NoError(t, repo.Upsert(ctx, inv))

		stored, err := repo.FindByInvoiceID(ctx, "inv_update")
		require.NoError(t, err)
		assert.Equal(t, "paid", stored.Status.String)
		require.True(t, stored.PaidAmount.Valid)
		assert.True(t, stored.PaidAmount.Decimal.Equal(decimal.RequireFromString("80.00")))
	})

	t.Run("human-set provider status survives re-upsert", func(t *testing.T) {
		inv := sampleInvoice("inv_workflow")
		require.NoError(t, repo.Upsert(ctx, inv))
		require.NoError(t, repo.UpdateProviderStatus(ctx, "inv_workflow", models.ProviderStatusSent))

		// Simulate a later sync touching the same invoice.
		inv.Status = sql.NullString{String: "paid", Valid: true}
		require.NoError(t, repo.Upsert(ctx, inv))

		stored, err := repo.FindByInvoiceID(ctx, "inv_workflow")
		require.NoError(t, err)
		assert.Equal(t, models.ProviderStatusSent, stored.ProviderStatus)
		assert.Equal(t, "paid", stored.Status.String)
	})

	t.Run("re-upsert does not duplicate", func(t *testing.T) {
		inv := sampleInvoice("inv_dup")
		require.NoError(t, repo.Upsert(ctx, inv))
		require.NoError(t, repo.Upsert(ctx, inv))

		var count int
		err := database.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM invoices WHERE invoice_id = $1`, "inv_dup").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestInvoiceRepository_ExistingInvoiceIDs(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)
	truncateTables(t, database)

	repo := NewInvoiceRepository(database)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleInvoice("inv_exist_1")))

	existing, err := repo.ExistingInvoiceIDs(ctx, []string{"inv_exist_1", "inv_missing"})
	require.NoError(t, err)

	assert.Len(t, existing, 1)
	assert.Contains(t, existing, "inv_exist_1")
}

func TestInvoiceRepository_UpdateProviderStatus(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)
	truncateTables(t, database)

	repo := NewInvoiceRepository(database)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleInvoice("inv_status")))

	require.NoError(t, repo.UpdateProviderStatus(ctx, "inv_status", models.ProviderStatusSent))

	stored, err := repo.FindByInvoiceID(ctx, "inv_status")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderStatusSent, stored.ProviderStatus)

	err = repo.UpdateProviderStatus(ctx, "inv_absent", models.ProviderStatusSent)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
