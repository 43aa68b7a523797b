//nolint:errcheck // unchecked errors are acceptable in test files
package tests

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/merchantkit/paysync/internal/config"
	"github.com/merchantkit/paysync/internal/db"
	"github.com/merchantkit/paysync/internal/handlers"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

// fakeProcessor is an in-memory stand-in for the remote payment API. Tests
// register payment and invoice fixtures and the sync engine pulls them over
// real HTTP.
type fakeProcessor struct {
	mu       sync.Mutex
	payments []map[string]any
	invoices map[string]map[string]any
	calls    int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{invoices: make(map[string]map[string]any)}
}

func (f *fakeProcessor) addPayment(payment map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, payment)
}

func (f *fakeProcessor) addInvoice(invoice map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[invoice["id"].(string)] = invoice
}

func (f *fakeProcessor) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /payment", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls++

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit <= 0 {
			limit = len(f.payments)
		}

		var page []map[string]any
		for i := offset; i < len(f.payments) && len(page) < limit; i++ {
			page = append(page, f.payments[i])
		}
		if page == nil {
			page = []map[string]any{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"recordCount": len(page),
			"records":     page,
		})
	})
	mux.HandleFunc("GET /payment/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls++

		id := r.PathValue("id")
		for _, payment := range f.payments {
			if payment["id"] == id {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(payment)
				return
			}
		}
		http.Error(w, `{"error":"payment not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("GET /invoice/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls++

		invoice, ok := f.invoices[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":"invoice not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(invoice)
	})
	return mux
}

// TestServer wraps the HTTP test server, fake processor and database for
// integration tests.
type TestServer struct {
	Server    *httptest.Server
	Processor *fakeProcessor
	Database  *db.DB
	t         *testing.T
}

// SetupTest creates a new test server with a clean database state and a
// fake processor upstream.
func SetupTest(t *testing.T) *TestServer {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err, "failed to load config")
	cfg.Scheduler.Enabled = false
	cfg.Sync.BatchDelay = 0

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.Connect(context.Background(), &cfg.Database, logger)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	runMigrations(t, database)
	resetTestData(t, database)

	processor := newFakeProcessor()
	upstream := httptest.NewServer(processor.handler())
	t.Cleanup(upstream.Close)
	cfg.Processor.BaseURL = upstream.URL
	cfg.Processor.RetryBaseDelay = 0

	router, _ := handlers.NewRouter(database, cfg, logger)
	server := httptest.NewServer(router)

	return &TestServer{
		Server:    server,
		Processor: processor,
		Database:  database,
		t:         t,
	}
}

// Close shuts down the test server and database connection.
func (ts *TestServer) Close() {
	ts.Server.Close()
	_ = ts.Database.Close()
}

// URL returns the full URL for a given path.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

func runMigrations(t *testing.T, database *db.DB) {
	t.Helper()

	migrationPath := filepath.Join("..", "internal", "db", "migrations", "000001_init.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath) // #nosec G304
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}

	if _, err := database.ExecContext(context.Background(), string(sqlBytes)); err != nil {
		t.Logf("migration execution completed (tables may already exist): %v", err)
	}
}

func resetTestData(t *testing.T, database *db.DB) {
	t.Helper()

	_, err := database.ExecContext(context.Background(), fmt.Sprintf(`
		TRUNCATE transactions, invoices, product_category_mappings,
		         sync_runs, merchant_credentials, webhook_events;
		INSERT INTO merchant_credentials (merchant_id, consumer_key, consumer_secret, webhook_secret, environment, active)
		VALUES ('default', 'ck_test', 'cs_test', '%s', 'sandbox', TRUE);
		INSERT INTO product_category_mappings (merchant_id, product_name, category, active)
		VALUES ('default', 'Gold Plan', 'Memberships', TRUE);
	`, testWebhookSecret))
	require.NoError(t, err, "failed to reset test data")
}

// TriggerSync sends a POST request to start a reconciliation pull.
func (ts *TestServer) TriggerSync(t *testing.T, merchantID string, count int) *http.Response {
	t.Helper()

	body := map[string]any{
		"merchant_id": merchantID,
		"count":       count,
	}
	jsonBody, _ := json.Marshal(body)

	req, err := http.NewRequest(http.MethodPost, ts.URL("/api/v1/sync/transactions"), bytes.NewReader(jsonBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// SendWebhook posts a signed webhook delivery.
func (ts *TestServer) SendWebhook(t *testing.T, payload map[string]any, secret string) *http.Response {
	t.Helper()

	jsonBody, _ := json.Marshal(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(jsonBody)

	req, err := http.NewRequest(http.MethodPost, ts.URL("/webhooks/processor"), bytes.NewReader(jsonBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Processor-Signature", hex.EncodeToString(mac.Sum(nil)))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func jsonReader(s string) io.Reader {
	return strings.NewReader(s)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}
