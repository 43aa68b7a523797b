//nolint:errcheck // unchecked errors are acceptable in test files
package tests

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStandardFixtures(ts *TestServer) {
	// Two payments settle the same invoice; the third has no invoice link.
	ts.Processor.addPayment(map[string]any{
		"id": "pay_1", "amount": "125.50", "currency": "USD", "status": "approved",
		"transactionDateTime": "2026-08-15T10:30:00Z",
		"customerName":        "Acme Corp",
		"invoiceIds":          []string{"inv-1"},
		"invoiceNumber":       "INV-0001",
	})
	ts.Processor.addPayment(map[string]any{
		"id": "pay_2", "amount": "74.50", "currency": "USD", "status": "settled",
		"invoiceIds":    []string{"inv-1"},
		"invoiceNumber": "INV-0001",
	})
	ts.Processor.addPayment(map[string]any{
		"id": "pay_3", "amount": "10.00", "currency": "USD", "status": "declined",
	})
	ts.Processor.addInvoice(map[string]any{
		"id": "inv-1", "invoiceNumber": "INV-0001", "customerName": "Acme Corp",
		"total": "200.00", "paidTotal": "200.00", "balance": "0.00", "status": "paid",
		"lineItems": []map[string]any{{"name": "Gold Plan", "total": "200.00"}},
	})
}

func countRows(t *testing.T, ts *TestServer, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, ts.Database.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func TestFullSyncFlow(t *testing.T) {
	ts := SetupTest(t)
	defer ts.Close()
	seedStandardFixtures(ts)

	resp := ts.TriggerSync(t, "default", 10)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)

	assert.Equal(t, float64(3), result["transactions_processed"])
	assert.Equal(t, float64(0), result["transactions_failed"])
	assert.Equal(t, float64(1), result["invoices_processed"])
	assert.Equal(t, true, result["success"])

	assert.Equal(t, 3, countRows(t, ts, `SELECT COUNT(*) FROM transactions`))
	assert.Equal(t, 1, countRows(t, ts, `SELECT COUNT(*) FROM invoices`))

	// Both linked transactions carry the invoice reference and the mapped
	// category.
	assert.Equal(t, 2, countRows(t, ts, `
		SELECT COUNT(*) FROM transactions
		WHERE invoice_id = 'inv-1' AND product_name = 'Gold Plan' AND product_category = 'Memberships'
	`))

	// The workflow field initializes to pending on first insert.
	var providerStatus string
	require.NoError(t, ts.Database.QueryRowContext(context.Background(),
		`SELECT provider_status FROM invoices WHERE invoice_id = 'inv-1'`).Scan(&providerStatus))
	assert.Equal(t, "pending", providerStatus)

	// The run is audited as completed.
	assert.Equal(t, 1, countRows(t, ts,
		`SELECT COUNT(*) FROM sync_runs WHERE status = 'completed' AND run_type = 'full'`))
}

func TestSyncIsIdempotent(t *testing.T) {
	ts := SetupTest(t)
	defer ts.Close()
	seedStandardFixtures(ts)

	first := decodeBody(t, ts.TriggerSync(t, "default", 10))
	require.Equal(t, true, first["success"])

	second := decodeBody(t, ts.TriggerSync(t, "default", 10))
	assert.Equal(t, true, second["success"])
	assert.Equal(t, float64(3), second["already_existing"])
	assert.Equal(t, float64(0), second["invoices_processed"])

	assert.Equal(t, 3, countRows(t, ts, `SELECT COUNT(*) FROM transactions`))
	assert.Equal(t, 1, countRows(t, ts, `SELECT COUNT(*) FROM invoices`))
}

func TestProviderStatusSurvivesResync(t *testing.T) {
	ts := SetupTest(t)
	defer ts.Close()
	seedStandardFixtures(ts)

	decodeBody(t, ts.TriggerSync(t, "default", 10))

	// An operator marks the invoice as sent through the API.
	req, _ := http.NewRequest(http.MethodPut, ts.URL("/api/v1/invoices/inv-1/provider-status"),
		jsonReader(`{"provider_status":"sent"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody(t, resp)
	assert.Equal(t, "sent", updated["provider_status"])

	// A webhook re-sync for a linked payment must not reset the field.
	resp = ts.SendWebhook(t, map[string]any{
		"eventId": "evt_resync", "eventType": "payment.updated",
		"id": "pay_1", "merchantId": "default",
	}, testWebhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var providerStatus string
	require.NoError(t, ts.Database.QueryRowContext(context.Background(),
		`SELECT provider_status FROM invoices WHERE invoice_id = 'inv-1'`).Scan(&providerStatus))
	assert.Equal(t, "sent", providerStatus)
}

func TestWebhookFlow(t *testing.T) {
	ts := SetupTest(t)
	defer ts.Close()
	seedStandardFixtures(ts)

	t.Run("signed delivery syncs the payment", func(t *testing.T) {
		resp := ts.SendWebhook(t, map[string]any{
			"eventId": "evt_1", "eventType": "payment.created",
			"id": "pay_1", "merchantId": "default",
		}, testWebhookSecret)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Equal(t, 1, countRows(t, ts,
			`SELECT COUNT(*) FROM transactions WHERE payment_id = 'pay_1' AND invoice_id = 'inv-1'`))
		assert.Equal(t, 1, countRows(t, ts,
			`SELECT COUNT(*) FROM sync_runs WHERE run_type = 'webhook' AND status = 'completed'`))
	})

	t.Run("duplicate delivery is replayed, not reprocessed", func(t *testing.T) {
		before := countRows(t, ts, `SELECT COUNT(*) FROM sync_runs WHERE run_type = 'webhook'`)

		resp := ts.SendWebhook(t, map[string]any{
			"eventId": "evt_1", "eventType": "payment.created",
			"id": "pay_1", "merchantId": "default",
		}, testWebhookSecret)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "true", resp.Header.Get("X-Webhook-Replayed"))
		assert.Equal(t, before, countRows(t, ts, `SELECT COUNT(*) FROM sync_runs WHERE run_type = 'webhook'`))
	})

	t.Run("bad signature is rejected without side effects", func(t *testing.T) {
		resp := ts.SendWebhook(t, map[string]any{
			"eventId": "evt_forged", "eventType": "payment.created",
			"id": "pay_2", "merchantId": "default",
		}, "wrong-secret")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 0, countRows(t, ts,
			`SELECT COUNT(*) FROM transactions WHERE payment_id = 'pay_2'`))
		// The rejection itself is recorded for replay protection.
		assert.Equal(t, 1, countRows(t, ts,
			`SELECT COUNT(*) FROM webhook_events WHERE event_id = 'evt_forged' AND outcome = 'error'`))
	})
}

func TestLateInvoiceLinkIsFilled(t *testing.T) {
	ts := SetupTest(t)
	defer ts.Close()

	// First delivery of the payment has no invoice yet.
	ts.Processor.addPayment(map[string]any{
		"id": "pay_late", "amount": "55.00", "currency": "USD", "status": "approved",
	})

	decodeBody(t, ts.TriggerSync(t, "default", 10))
	assert.Equal(t, 0, countRows(t, ts,
		`SELECT COUNT(*) FROM transactions WHERE payment_id = 'pay_late' AND invoice_id IS NOT NULL`))

	// The processor later attaches the invoice; a webhook re-sync picks it up.
	ts.Processor.mu.Lock()
	ts.Processor.payments[0]["invoiceIds"] = []string{"inv-late"}
	ts.Processor.mu.Unlock()
	ts.Processor.addInvoice(map[string]any{
		"id": "inv-late", "total": "55.00",
		"lineItems": []map[string]any{{"name": "Silver Plan"}},
	})

	resp := ts.SendWebhook(t, map[string]any{
		"eventId": "evt_late", "eventType": "payment.updated",
		"id": "pay_late", "merchantId": "default",
	}, testWebhookSecret)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1, countRows(t, ts,
		`SELECT COUNT(*) FROM transactions WHERE payment_id = 'pay_late' AND invoice_id = 'inv-late'`))
	// No mapping exists for Silver Plan, so the default category applies.
	assert.Equal(t, 1, countRows(t, ts,
		`SELECT COUNT(*) FROM transactions WHERE payment_id = 'pay_late' AND product_category = 'Uncategorized'`))
}

func TestConcurrentWebhookAndSyncConverge(t *testing.T) {
	ts := SetupTest(t)
	defer ts.Close()
	seedStandardFixtures(ts)

	// A webhook for pay_1 races a full pull covering the same payment. Both
	// paths are idempotent conflict-key upserts, so whichever commits second
	// must leave the exact same row state.
	var wg sync.WaitGroup
	statuses := make(chan int, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		body, _ := json.Marshal(map[string]any{"merchant_id": "default", "count": 10})
		resp, err := http.Post(ts.URL("/api/v1/sync/transactions"), "application/json", bytes.NewReader(body))
		if err != nil {
			statuses <- 0
			return
		}
		resp.Body.Close()
		statuses <- resp.StatusCode
	}()
	go func() {
		defer wg.Done()
		payload, _ := json.Marshal(map[string]any{
			"eventId": "evt_race", "eventType": "payment.updated",
			"id": "pay_1", "merchantId": "default",
		})
		mac := hmac.New(sha256.New, []byte(testWebhookSecret))
		mac.Write(payload)
		req, err := http.NewRequest(http.MethodPost, ts.URL("/webhooks/processor"), bytes.NewReader(payload))
		if err != nil {
			statuses <- 0
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Processor-Signature", hex.EncodeToString(mac.Sum(nil)))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			statuses <- 0
			return
		}
		resp.Body.Close()
		statuses <- resp.StatusCode
	}()
	wg.Wait()
	close(statuses)

	for status := range statuses {
		require.Equal(t, http.StatusOK, status)
	}

	// Exactly one row per entity, with the link and category attached, no
	// matter which path committed last.
	assert.Equal(t, 1, countRows(t, ts,
		`SELECT COUNT(*) FROM transactions WHERE payment_id = 'pay_1'`))
	assert.Equal(t, 1, countRows(t, ts,
		`SELECT COUNT(*) FROM transactions
		 WHERE payment_id = 'pay_1' AND invoice_id = 'inv-1'
		   AND product_name = 'Gold Plan' AND product_category = 'Memberships'`))
	assert.Equal(t, 1, countRows(t, ts, `SELECT COUNT(*) FROM invoices WHERE invoice_id = 'inv-1'`))

	var providerStatus string
	require.NoError(t, ts.Database.QueryRowContext(context.Background(),
		`SELECT provider_status FROM invoices WHERE invoice_id = 'inv-1'`).Scan(&providerStatus))
	assert.Equal(t, "pending", providerStatus)

	// Both runs reached a terminal status.
	assert.Equal(t, 0, countRows(t, ts, `SELECT COUNT(*) FROM sync_runs WHERE status = 'started'`))
}

func TestSyncRunEndpoints(t *testing.T) {
	ts := SetupTest(t)
	defer ts.Close()
	seedStandardFixtures(ts)

	result := decodeBody(t, ts.TriggerSync(t, "default", 10))
	runID := result["run_id"].(string)

	resp, err := http.Get(ts.URL("/api/v1/sync/runs/" + runID))
	require.NoError(t, err)
	run := decodeBody(t, resp)
	assert.Equal(t, "completed", run["status"])
	assert.Equal(t, "full", run["run_type"])
	assert.Equal(t, float64(3), run["records_processed"])

	resp, err = http.Get(ts.URL("/api/v1/sync/runs?merchant_id=default"))
	require.NoError(t, err)
	listing := decodeBody(t, resp)
	runs := listing["runs"].([]any)
	require.Len(t, runs, 1)
}

func TestSyncWithUnknownMerchant(t *testing.T) {
	ts := SetupTest(t)
	defer ts.Close()

	resp := ts.TriggerSync(t, "ghost", 10)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The failed run is still audited.
	assert.Equal(t, 1, countRows(t, ts, `SELECT COUNT(*) FROM sync_runs WHERE status = 'failed'`))
}
