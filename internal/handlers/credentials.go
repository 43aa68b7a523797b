package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/service"
)

type credentialRequest struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	WebhookSecret  string `json:"webhook_secret"`
	Environment    string `json:"environment"`
	Active         *bool  `json:"active"`
}

// credentialResponse never echoes the stored secrets.
type credentialResponse struct {
	MerchantID  string `json:"merchant_id"`
	Environment string `json:"environment"`
	Active      bool   `json:"active"`
}

// UpsertCredential handles PUT /api/v1/credentials/{merchantID}. After the
// write the cached credential is evicted, so a rotated key takes effect on
// the next sync or webhook rather than when the cache TTL expires.
func (h *Handler) UpsertCredential(w http.ResponseWriter, r *http.Request) {
	merchantID := chi.URLParam(r, "merchantID")

	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation, "malformed request body")
		return
	}
	if req.ConsumerKey == "" || req.ConsumerSecret == "" || req.WebhookSecret == "" {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation,
			"consumer_key, consumer_secret and webhook_secret are required")
		return
	}

	environment := models.Environment(req.Environment)
	if environment == "" {
		environment = models.EnvironmentSandbox
	}
	if environment != models.EnvironmentSandbox && environment != models.EnvironmentProduction {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation,
			"environment must be sandbox or production")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	cred := &models.MerchantCredential{
		MerchantID:     merchantID,
		ConsumerKey:    req.ConsumerKey,
		ConsumerSecret: req.ConsumerSecret,
		WebhookSecret:  req.WebhookSecret,
		Environment:    environment,
		Active:         active,
	}

	if err := h.credRepo.Upsert(r.Context(), cred); err != nil {
		h.logger.Error("failed to upsert credential", "merchant_id", merchantID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, service.ErrCodePersistence, "failed to store credential")
		return
	}

	h.credentials.Invalidate(merchantID)
	h.logger.Info("merchant credential updated", "merchant_id", merchantID, "environment", environment, "active", active)

	respondJSON(w, h.logger, http.StatusOK, credentialResponse{
		MerchantID:  merchantID,
		Environment: string(environment),
		Active:      active,
	})
}
