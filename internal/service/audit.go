package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/merchantkit/paysync/internal/models"
	"github.com/merchantkit/paysync/internal/repository"
)

// AuditRecorder manages sync run audit records. Runs move from started to
// exactly one terminal status; a second Finish is a programming error and
// surfaces as run_finalized.
type AuditRecorder struct {
	repo   repository.SyncRunRepository
	logger *slog.Logger
}

// NewAuditRecorder creates a new AuditRecorder
func NewAuditRecorder(repo repository.SyncRunRepository, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, logger: logger}
}

// Start creates a run record in the started state and returns its id.
func (a *AuditRecorder) Start(ctx context.Context, merchantID string, runType models.RunType) (uuid.UUID, error) {
	run := &models.SyncRun{
		MerchantID: merchantID,
		RunType:    runType,
	}
	if err := a.repo.Create(ctx, run); err != nil {
		return uuid.Nil, &ServiceError{
			Code:    ErrCodePersistence,
			Message: "failed to create sync run",
			Err:     err,
		}
	}

	a.logger.Info("sync run started",
		"run_id", run.ID,
		"merchant_id", merchantID,
		"run_type", runType,
	)
	return run.ID, nil
}

// Update accumulates progress counts onto a run as batches complete.
func (a *AuditRecorder) Update(ctx context.Context, runID uuid.UUID, processed, failed, apiCalls int, lastProcessedID string) error {
	if err := a.repo.UpdateProgress(ctx, runID, processed, failed, apiCalls, lastProcessedID); err != nil {
		a.logger.Error("failed to update sync run progress",
			"run_id", runID,
			"error", err,
		)
		return &ServiceError{
			Code:    ErrCodePersistence,
			Message: "failed to update sync run",
			Err:     err,
		}
	}
	return nil
}

// Finish moves a run to a terminal status.
func (a *AuditRecorder) Finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, errorMessage string) error {
	err := a.repo.Finish(ctx, runID, status, errorMessage)
	if err != nil {
		if errors.Is(err, models.ErrRunFinalized) {
			return &ServiceError{
				Code:    ErrCodeRunFinalized,
				Message: "sync run " + runID.String() + " is already finalized",
				Err:     err,
			}
		}
		return &ServiceError{
			Code:    ErrCodePersistence,
			Message: "failed to finish sync run",
			Err:     err,
		}
	}

	a.logger.Info("sync run finished",
		"run_id", runID,
		"status", status,
		"error_message", errorMessage,
	)
	return nil
}
