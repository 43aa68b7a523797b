package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/service"
)

// GetInvoice handles GET /api/v1/invoices/{invoiceID}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceID")

	invoice, err := h.invoiceRepo.FindByInvoiceID(r.Context(), invoiceID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, h.logger, http.StatusNotFound, service.ErrCodeNotFound, "invoice not found")
			return
		}
		h.logger.Error("failed to load invoice", "invoice_id", invoiceID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, service.ErrCodePersistence, "failed to load invoice")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, toInvoiceResponse(invoice))
}

type providerStatusRequest struct {
	ProviderStatus string `json:"provider_status"`
}

var validProviderStatuses = map[string]bool{
	models.ProviderStatusPending: true,
	models.ProviderStatusSent:    true,
	models.ProviderStatusFailed:  true,
}

// UpdateProviderStatus handles PUT /api/v1/invoices/{invoiceID}/provider-status.
// This is the only write path for the locally-owned workflow field.
func (h *Handler) UpdateProviderStatus(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceID")

	var req providerStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation, "malformed request body")
		return
	}
	if !validProviderStatuses[req.ProviderStatus] {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation,
			"provider_status must be pending, sent or failed")
		return
	}

	if err := h.invoiceRepo.UpdateProviderStatus(r.Context(), invoiceID, req.ProviderStatus); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, h.logger, http.StatusNotFound, service.ErrCodeNotFound, "invoice not found")
			return
		}
		h.logger.Error("failed to update provider status", "invoice_id", invoiceID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, service.ErrCodePersistence, "failed to update provider status")
		return
	}

	invoice, err := h.invoiceRepo.FindByInvoiceID(r.Context(), invoiceID)
	if err != nil {
		h.logger.Error("failed to reload invoice", "invoice_id", invoiceID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, service.ErrCodePersistence, "failed to reload invoice")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, toInvoiceResponse(invoice))
}
