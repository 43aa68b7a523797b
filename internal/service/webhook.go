package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/merchantkit/paysync/internal/models"
)

// WebhookPayload is the envelope the processor posts on payment events.
type WebhookPayload struct {
	EventID    string `json:"eventId"`
	EventType  string `json:"eventType"`
	PaymentID  string `json:"id"`
	MerchantID string `json:"merchantId"`
}

// Ingestor handles inbound webhook events: verify the HMAC signature
// against the merchant's webhook secret, then pull the authoritative
// payment record through the single-record reconciliation path. The
// webhook body is treated only as a notification; all stored data comes
// from the pull.
type Ingestor struct {
	credentials *CredentialResolver
	engine      *Engine
	audit       *AuditRecorder
	newClient   ClientFactory
	logger      *slog.Logger
}

// NewIngestor creates a webhook Ingestor.
func NewIngestor(credentials *CredentialResolver, engine *Engine, audit *AuditRecorder, newClient ClientFactory, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		credentials: credentials,
		engine:      engine,
		audit:       audit,
		newClient:   newClient,
		logger:      logger,
	}
}

// HandleEvent verifies and processes one webhook notification. A signature
// mismatch is rejected before any sync run is recorded, so forged requests
// leave no audit trail beyond the dedup ledger.
func (in *Ingestor) HandleEvent(ctx context.Context, rawBody []byte, signature string) error {
	var payload WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return &ServiceError{Code: ErrCodeValidation, Message: "malformed webhook payload", Err: err}
	}
	if payload.PaymentID == "" {
		return validationError("webhook payload has no payment id")
	}
	merchantID := payload.MerchantID
	if merchantID == "" {
		merchantID = "default"
	}

	cred, err := in.credentials.Resolve(ctx, merchantID)
	if err != nil {
		return err
	}

	if !VerifySignature(rawBody, signature, cred.WebhookSecret) {
		in.logger.Warn("webhook signature verification failed",
			"merchant_id", merchantID,
			"event_id", payload.EventID,
			"event_type", payload.EventType,
		)
		return &ServiceError{Code: ErrCodeWebhookSignature, Message: "invalid webhook signature"}
	}

	runID, err := in.audit.Start(ctx, merchantID, models.RunTypeWebhook)
	if err != nil {
		return err
	}
	client := in.newClient(cred)

	if err := in.engine.syncSinglePayment(ctx, client, merchantID, payload.PaymentID); err != nil {
		in.finish(ctx, runID, models.RunStatusFailed, err.Error())
		return err
	}

	_ = in.audit.Update(ctx, runID, 1, 0, int(client.CallCount()), payload.PaymentID) //nolint:errcheck // logged by recorder
	in.finish(ctx, runID, models.RunStatusCompleted, "")

	in.logger.Info("webhook event processed",
		"merchant_id", merchantID,
		"event_id", payload.EventID,
		"event_type", payload.EventType,
		"payment_id", payload.PaymentID,
	)
	return nil
}

// finish finalizes the audit record on a detached context so a cancelled
// request cannot leave the run stuck in started.
func (in *Ingestor) finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, errText string) {
	ctx = context.WithoutCancel(ctx)
	if err := in.audit.Finish(ctx, runID, status, errText); err != nil {
		in.logger.Error("failed to finalize webhook run", "run_id", runID, "error", err)
	}
}

// VerifySignature checks an HMAC-SHA256 hex signature over the raw request
// body. A "sha256=" prefix on the header value is accepted. Comparison is
// constant time.
func VerifySignature(body []byte, signature, secret string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
