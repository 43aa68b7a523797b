package handlers

import (
	"io"
	"net/http"

	"github.com/merchantkit/paysync/internal/service"
)

const signatureHeader = "X-Processor-Signature"

// maxWebhookBody bounds how much of a webhook request is read.
const maxWebhookBody = 1 << 20

// ReceiveWebhook handles POST /webhooks/processor. The body is read raw so
// the signature can be verified over the exact bytes the processor signed.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation, "failed to read request body")
		return
	}

	if err := h.ingestor.HandleEvent(r.Context(), body, r.Header.Get(signatureHeader)); err != nil {
		code := service.ErrorCode(err)
		if code == service.ErrCodeWebhookSignature {
			h.logger.Warn("webhook rejected", "error", err)
		} else {
			h.logger.Error("webhook processing failed", "error", err)
		}
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "processed"})
}
