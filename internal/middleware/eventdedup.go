// Package middleware provides HTTP middleware for the sync API.
package middleware

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/repository"
)

// maxWebhookBody bounds how much of a webhook request is read for
// dedup inspection.
const maxWebhookBody = 1 << 20

type responseCapture struct {
	http.ResponseWriter
	body       bytes.Buffer
	statusCode int
}

func newResponseCapture(w http.ResponseWriter) *responseCapture {
	return &responseCapture{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // Default if WriteHeader not called
	}
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.statusCode = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b) // Capture for replay
	return rc.ResponseWriter.Write(b)
}

// WebhookDedup creates middleware that makes webhook delivery idempotent.
// The processor retries deliveries until acknowledged, so the same event id
// can arrive more than once; a duplicate replays the stored response
// instead of triggering a second sync. Events without an id pass through
// and are processed every time.
func WebhookDedup(repo repository.WebhookEventRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				http.Error(w, "failed to read request body", http.StatusBadRequest)
				return
			}
			r.Body.Close()
			// The downstream handler needs the raw bytes for signature
			// verification.
			r.Body = io.NopCloser(bytes.NewReader(body))

			envelope := parseEventEnvelope(body)
			if envelope.EventID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cached, err := repo.Get(ctx, envelope.EventID)
			if err != nil {
				logger.Error("failed to check webhook event ledger", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if cached != nil {
				logger.Debug("replaying processed webhook event",
					"event_id", envelope.EventID,
					"status", cached.ResponseStatus,
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Webhook-Replayed", "true")
				w.WriteHeader(cached.ResponseStatus)
				//nolint:errcheck // Best effort response writing
				w.Write([]byte(cached.ResponseBody))
				return
			}

			capture := newResponseCapture(w)
			next.ServeHTTP(capture, r)

			event := &models.WebhookEvent{
				EventID:        envelope.EventID,
				MerchantID:     nullable(envelope.MerchantID),
				EventType:      nullable(envelope.EventType),
				PaymentID:      nullable(envelope.PaymentID),
				Outcome:        outcomeFor(capture.statusCode),
				ResponseStatus: capture.statusCode,
				ResponseBody:   capture.body.String(),
			}
			if err := repo.Store(ctx, event); err != nil {
				logger.Error("failed to record webhook event",
					"error", err,
					"event_id", envelope.EventID,
				)
			}
		})
	}
}

// eventEnvelope is the subset of the webhook payload the dedup layer needs
type eventEnvelope struct {
	EventID    string `json:"eventId"`
	EventType  string `json:"eventType"`
	PaymentID  string `json:"id"`
	MerchantID string `json:"merchantId"`
}

func parseEventEnvelope(body []byte) eventEnvelope {
	var env eventEnvelope
	// A malformed body falls through to the handler, which rejects it.
	_ = json.Unmarshal(body, &env) //nolint:errcheck
	return env
}

func outcomeFor(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return models.WebhookOutcomeSuccess
	}
	return models.WebhookOutcomeError
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
