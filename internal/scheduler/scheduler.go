// Package scheduler triggers periodic reconciliation pulls.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/merchantkit/paysync/internal/config"
	"github.com/merchantkit/paysync/internal/service"
)

// Scheduler runs a full sync for the configured merchant at a fixed
// interval. Webhooks keep the data fresh between ticks; the periodic pull
// catches anything a missed delivery would otherwise lose.
type Scheduler struct {
	engine service.Syncer
	cfg    *config.SchedulerConfig
	logger *slog.Logger
}

// New creates a Scheduler.
func New(engine service.Syncer, cfg *config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{engine: engine, cfg: cfg, logger: logger}
}

// Run executes an immediate sync and then one per interval until the
// context is cancelled. It blocks; callers run it in a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		"merchant_id", s.cfg.MerchantID,
		"interval", s.cfg.Interval,
	)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result, err := s.engine.SyncTransactions(ctx, s.cfg.MerchantID, s.cfg.PullCount, "")
	if err != nil {
		s.logger.Error("scheduled sync failed",
			"merchant_id", s.cfg.MerchantID,
			"error", err,
		)
		return
	}

	s.logger.Info("scheduled sync finished",
		"run_id", result.RunID,
		"transactions_processed", result.TransactionsProcessed,
		"transactions_failed", result.TransactionsFailed,
		"success", result.Success,
	)
}
