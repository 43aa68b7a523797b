package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/service"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, code, message string) {
	respondJSON(w, logger, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// respondServiceError maps a service error onto an HTTP status.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := service.ErrorCode(err)
	respondError(w, logger, statusForCode(code), code, err.Error())
}

func statusForCode(code string) int {
	switch code {
	case service.ErrCodeValidation:
		return http.StatusBadRequest
	case service.ErrCodeAuth, service.ErrCodeWebhookSignature:
		return http.StatusUnauthorized
	case service.ErrCodeNotFound:
		return http.StatusNotFound
	case service.ErrCodeRunFinalized:
		return http.StatusConflict
	case service.ErrCodeRemoteAPI, service.ErrCodeTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// syncRunResponse is the wire shape of a sync audit record
type syncRunResponse struct {
	ID               string     `json:"id"`
	MerchantID       string     `json:"merchant_id"`
	RunType          string     `json:"run_type"`
	Status           string     `json:"status"`
	RecordsProcessed int        `json:"records_processed"`
	RecordsFailed    int        `json:"records_failed"`
	APICalls         int        `json:"api_calls"`
	LastProcessedID  *string    `json:"last_processed_id,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func toSyncRunResponse(run *models.SyncRun) syncRunResponse {
	resp := syncRunResponse{
		ID:               run.ID.String(),
		MerchantID:       run.MerchantID,
		RunType:          string(run.RunType),
		Status:           string(run.Status),
		RecordsProcessed: run.RecordsProcessed,
		RecordsFailed:    run.RecordsFailed,
		APICalls:         run.APICalls,
		StartedAt:        run.StartedAt,
	}
	if run.LastProcessedID.Valid {
		resp.LastProcessedID = &run.LastProcessedID.String
	}
	if run.ErrorMessage.Valid {
		resp.ErrorMessage = &run.ErrorMessage.String
	}
	if run.CompletedAt.Valid {
		resp.CompletedAt = &run.CompletedAt.Time
	}
	return resp
}

// invoiceResponse is the wire shape of a stored invoice
type invoiceResponse struct {
	InvoiceID      string     `json:"invoice_id"`
	MerchantID     string     `json:"merchant_id"`
	InvoiceNumber  *string    `json:"invoice_number,omitempty"`
	CustomerName   *string    `json:"customer_name,omitempty"`
	CustomerID     *string    `json:"customer_id,omitempty"`
	TotalAmount    *string    `json:"total_amount,omitempty"`
	PaidAmount     *string    `json:"paid_amount,omitempty"`
	BalanceAmount  *string    `json:"balance_amount,omitempty"`
	Status         *string    `json:"status,omitempty"`
	Currency       string     `json:"currency"`
	ProviderStatus string     `json:"provider_status"`
	InvoiceDate    *time.Time `json:"invoice_date,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

func toInvoiceResponse(invoice *models.Invoice) invoiceResponse {
	resp := invoiceResponse{
		InvoiceID:      invoice.InvoiceID,
		MerchantID:     invoice.MerchantID,
		Currency:       invoice.Currency,
		ProviderStatus: invoice.ProviderStatus,
	}
	if invoice.InvoiceNumber.Valid {
		resp.InvoiceNumber = &invoice.InvoiceNumber.String
	}
	if invoice.CustomerName.Valid {
		resp.CustomerName = &invoice.CustomerName.String
	}
	if invoice.CustomerID.Valid {
		resp.CustomerID = &invoice.CustomerID.String
	}
	if invoice.TotalAmount.Valid {
		s := invoice.TotalAmount.Decimal.String()
		resp.TotalAmount = &s
	}
	if invoice.PaidAmount.Valid {
		s := invoice.PaidAmount.Decimal.String()
		resp.PaidAmount = &s
	}
	if invoice.BalanceAmount.Valid {
		s := invoice.BalanceAmount.Decimal.String()
		resp.BalanceAmount = &s
	}
	if invoice.Status.Valid {
		resp.Status = &invoice.Status.String
	}
	if invoice.InvoiceDate.Valid {
		resp.InvoiceDate = &invoice.InvoiceDate.Time
	}
	if invoice.DueDate.Valid {
		resp.DueDate = &invoice.DueDate.Time
	}
	return resp
}
