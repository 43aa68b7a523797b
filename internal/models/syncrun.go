package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// RunType identifies what triggered a synchronization run
type RunType string

const (
	RunTypeFull        RunType = "full"
	RunTypeIncremental RunType = "incremental"
	RunTypeWebhook     RunType = "webhook"
)

// RunStatus is the lifecycle state of a sync run
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// SyncRun is the audit record for one synchronization attempt
type SyncRun struct {
	StartedAt        time.Time      `db:"started_at"`
	CompletedAt      sql.NullTime   `db:"completed_at"`
	MerchantID       string         `db:"merchant_id"`
	RunType          RunType        `db:"run_type"`
	Status           RunStatus      `db:"status"`
	LastProcessedID  sql.NullString `db:"last_processed_id"`
	ErrorMessage     sql.NullString `db:"error_message"`
	RecordsProcessed int            `db:"records_processed"`
	RecordsFailed    int            `db:"records_failed"`
	APICalls         int            `db:"api_calls"`
	ID               uuid.UUID      `db:"id"`
}
