package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/merchantkit/paysync/internal/models"
)

// SyncRunRepository defines the interface for sync audit record access
type SyncRunRepository interface {
	Create(ctx context.Context, run *models.SyncRun) error
	UpdateProgress(ctx context.Context, runID uuid.UUID, processed, failed, apiCalls int, lastProcessedID string) error
	Finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, errorMessage string) error
	FindByID(ctx context.Context, runID uuid.UUID) (*models.SyncRun, error)
	ListRecent(ctx context.Context, merchantID string, limit int) ([]*models.SyncRun, error)
}

// syncRunRepository implements SyncRunRepository
type syncRunRepository struct {
	db Querier
}

// NewSyncRunRepository creates a new SyncRunRepository
func NewSyncRunRepository(database Querier) SyncRunRepository {
	return &syncRunRepository{db: database}
}

// Create inserts a new sync run in the started state
func (r *syncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = models.RunStatusStarted
	}

	query := `
		INSERT INTO sync_runs (id, merchant_id, run_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at
	`

	err := r.db.QueryRowContext(ctx, query,
		run.ID.String(),
		run.MerchantID,
		run.RunType,
		run.Status,
	).Scan(&run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	return nil
}

// UpdateProgress accumulates counts onto a run as batches complete
func (r *syncRunRepository) UpdateProgress(ctx context.Context, runID uuid.UUID, processed, failed, apiCalls int, lastProcessedID string) error {
	query := `
		UPDATE sync_runs
		SET records_processed = records_processed + $2,
		    records_failed    = records_failed + $3,
		    api_calls         = $4,
		    last_processed_id = COALESCE(NULLIF($5, ''), last_processed_id)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, runID.String(), processed, failed, apiCalls, lastProcessedID)
	if err != nil {
		return fmt.Errorf("failed to update sync run progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Finish moves a run to a terminal status. A run can be finalized exactly
// once; finishing an already-terminal run returns ErrRunFinalized.
func (r *syncRunRepository) Finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, errorMessage string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	query := `
		UPDATE sync_runs
		SET status        = $2,
		    error_message = NULLIF($3, ''),
		    completed_at  = NOW()
		WHERE id = $1 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, runID.String(), status, errorMessage, models.RunStatusStarted)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, findErr := r.FindByID(ctx, runID); findErr != nil {
			return findErr
		}
		return models.ErrRunFinalized
	}

	return nil
}

// FindByID retrieves a sync run by its id
func (r *syncRunRepository) FindByID(ctx context.Context, runID uuid.UUID) (*models.SyncRun, error) {
	query := `
		SELECT id, merchant_id, run_type, status, records_processed, records_failed,
		       api_calls, last_processed_id, error_message, started_at, completed_at
		FROM sync_runs
		WHERE id = $1
	`

	run, err := scanSyncRun(r.db.QueryRowContext(ctx, query, runID.String()))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sync run: %w", err)
	}

	return run, nil
}

// ListRecent returns the most recent runs for a merchant, newest first
func (r *syncRunRepository) ListRecent(ctx context.Context, merchantID string, limit int) ([]*models.SyncRun, error) {
	query := `
		SELECT id, merchant_id, run_type, status, records_processed, records_failed,
		       api_calls, last_processed_id, error_message, started_at, completed_at
		FROM sync_runs
		WHERE merchant_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, merchantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows close error is not actionable

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner) (*models.SyncRun, error) {
	var run models.SyncRun
	var id string
	err := row.Scan(
		&id,
		&run.MerchantID,
		&run.RunType,
		&run.Status,
		&run.RecordsProcessed,
		&run.RecordsFailed,
		&run.APICalls,
		&run.LastProcessedID,
		&run.ErrorMessage,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid sync run id %q: %w", id, err)
	}
	run.ID = parsed

	return &run, nil
}
