package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/service"
)

const maxPullCount = 10000

type syncRequest struct {
	MerchantID    string `json:"merchant_id"`
	Count         int    `json:"count"`
	CreatedFilter string `json:"created_filter"`
}

// TriggerSync handles POST /api/v1/sync/transactions
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation, "malformed request body")
		return
	}

	if req.MerchantID == "" {
		req.MerchantID = "default"
	}
	if req.Count <= 0 {
		req.Count = h.defaultCount
	}
	if req.Count > maxPullCount {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation,
			"count exceeds maximum of "+strconv.Itoa(maxPullCount))
		return
	}

	result, err := h.engine.SyncTransactions(r.Context(), req.MerchantID, req.Count, req.CreatedFilter)
	if err != nil {
		h.logger.Error("sync failed",
			"merchant_id", req.MerchantID,
			"error", err,
		)
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ListSyncRuns handles GET /api/v1/sync/runs
func (h *Handler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	merchantID := r.URL.Query().Get("merchant_id")
	if merchantID == "" {
		merchantID = "default"
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation, "invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := h.runRepo.ListRecent(r.Context(), merchantID, limit)
	if err != nil {
		h.logger.Error("failed to list sync runs", "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, service.ErrCodePersistence, "failed to list sync runs")
		return
	}

	responses := make([]syncRunResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, toSyncRunResponse(run))
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]any{"runs": responses})
}

// GetSyncRun handles GET /api/v1/sync/runs/{runID}
func (h *Handler) GetSyncRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, service.ErrCodeValidation, "invalid run id")
		return
	}

	run, err := h.runRepo.FindByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, h.logger, http.StatusNotFound, service.ErrCodeNotFound, "sync run not found")
			return
		}
		h.logger.Error("failed to load sync run", "run_id", runID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, service.ErrCodePersistence, "failed to load sync run")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, toSyncRunResponse(run))
}
