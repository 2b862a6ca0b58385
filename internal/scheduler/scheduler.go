package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inventory-sync-service/internal/models"
	"inventory-sync-service/internal/service"
	"inventory-sync-service/internal/util"

	"go.uber.org/zap"
)

// Scheduler triggers scheduled sync runs for the configured suppliers and
// reconciles runs left in the running state by a crash.
type Scheduler struct {
	orchestrator *service.Orchestrator
	store        service.Store
	suppliers    []string
	interval     time.Duration
	stuckTimeout time.Duration
	logger       *zap.Logger
}

// New creates a scheduler.
func New(
	orchestrator *service.Orchestrator,
	store service.Store,
	suppliers []string,
	interval time.Duration,
	stuckTimeout time.Duration,
) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		store:        store,
		suppliers:    suppliers,
		interval:     interval,
		stuckTimeout: stuckTimeout,
		logger:       util.GetLogger(),
	}
}

// Start reconciles stuck runs, then loops on the interval until the context
// is cancelled. Suppliers sync concurrently; the orchestrator's per-supplier
// guard keeps an over-long run from being doubled by the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.ReconcileStuckRuns(ctx); err != nil {
		s.logger.Error("Startup stuck-run reconciliation failed", zap.Error(err))
	}

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("suppliers", len(s.suppliers)))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.ReconcileStuckRuns(ctx); err != nil {
		s.logger.Error("Stuck-run reconciliation failed", zap.Error(err))
	}

	var wg sync.WaitGroup
	for _, supplierID := range s.suppliers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.runSupplier(ctx, id)
		}(supplierID)
	}
	wg.Wait()
}

func (s *Scheduler) runSupplier(ctx context.Context, supplierID string) {
	res, err := s.orchestrator.Run(ctx, supplierID, models.SyncSourceScheduled)
	if errors.Is(err, service.ErrConcurrentSync) {
		s.logger.Info("Scheduled sync skipped, run already in flight",
			zap.String("supplier_id", supplierID))
		return
	}
	if err != nil {
		s.logger.Error("Scheduled sync failed",
			zap.String("supplier_id", supplierID),
			zap.Error(err))
		return
	}
	s.logger.Info("Scheduled sync finished",
		zap.String("supplier_id", supplierID),
		zap.String("run_id", res.LogID),
		zap.Int("variants_synced", res.VariantsSynced),
		zap.Int("changes_detected", res.ChangesDetected))
}

// ReconcileStuckRuns marks running logs older than the stuck timeout as
// failed. Returns the number of logs reconciled.
func (s *Scheduler) ReconcileStuckRuns(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.stuckTimeout)
	stuck, err := s.store.GetStuckSyncLogs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("query stuck sync logs: %w", err)
	}

	reconciled := 0
	for _, log := range stuck {
		msg := fmt.Sprintf("stuck run timed out after %s, marked failed at reconciliation", s.stuckTimeout)
		if err := s.store.MarkSyncLogFailed(ctx, log.ID, msg, time.Now().UTC()); err != nil {
			s.logger.Error("Failed to reconcile stuck run",
				zap.String("run_id", log.ID),
				zap.Error(err))
			continue
		}
		reconciled++
		util.StuckRunsReconciledTotal.Inc()
		s.logger.Warn("Reconciled stuck run",
			zap.String("run_id", log.ID),
			zap.String("supplier_id", log.SupplierID),
			zap.Time("started_at", log.StartedAt))
	}
	return reconciled, nil
}
