package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inventory-sync-service/internal/detector"
	"inventory-sync-service/internal/models"
	"inventory-sync-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator coordinates sync runs: fetch, diff, persist changes, persist
// snapshots, finalize the run log. It enforces at most one concurrent run
// per supplier.
type Orchestrator struct {
	store     Store
	detector  *detector.Detector
	provider  InventoryProvider
	publisher EventPublisher // optional
	locker    Locker         // optional distributed guard
	logger    *zap.Logger

	mu     sync.Mutex
	active map[string]bool
}

// NewOrchestrator creates an orchestrator. publisher and locker may be nil.
func NewOrchestrator(
	store Store,
	det *detector.Detector,
	provider InventoryProvider,
	publisher EventPublisher,
	locker Locker,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		detector:  det,
		provider:  provider,
		publisher: publisher,
		locker:    locker,
		logger:    util.GetLogger(),
		active:    make(map[string]bool),
	}
}

// Run executes one synchronization for a supplier. It rejects with
// ErrConcurrentSync when a run is already in flight for that supplier,
// without creating a log row. Per-SKU failures accumulate on the run log and
// do not abort the batch; only fetch failures and cancellation fail the run.
func (o *Orchestrator) Run(ctx context.Context, supplierID, source string) (*models.SyncResult, error) {
	ctx, span := util.StartSpan(ctx, "SyncOrchestrator.Run")
	defer span.End()

	if !o.tryAcquire(supplierID) {
		util.SyncRunsRejectedTotal.Inc()
		return nil, fmt.Errorf("supplier %s: %w", supplierID, ErrConcurrentSync)
	}
	defer o.release(supplierID)

	if o.locker != nil {
		ok, err := o.locker.Acquire(ctx, supplierID)
		if err != nil {
			o.logger.Warn("Distributed lock unavailable, relying on local guard",
				zap.String("supplier_id", supplierID),
				zap.Error(err))
		} else if !ok {
			util.SyncRunsRejectedTotal.Inc()
			return nil, fmt.Errorf("supplier %s held elsewhere: %w", supplierID, ErrConcurrentSync)
		} else {
			defer func() {
				relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := o.locker.Release(relCtx, supplierID); err != nil {
					o.logger.Error("Failed to release distributed lock",
						zap.String("supplier_id", supplierID),
						zap.Error(err))
				}
			}()
		}
	}

	run := NewRunLog(supplierID, supplierID, source)
	if err := o.store.CreateSyncLog(ctx, run.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to create sync log: %w", err)
	}

	o.logger.Info("Sync run started",
		zap.String("run_id", run.ID()),
		zap.String("supplier_id", supplierID),
		zap.String("source", source))

	result, err := o.provider.FetchInventory(ctx, supplierID)
	if err != nil {
		util.ProviderFetchFailuresTotal.Inc()
		return o.failRun(run, source, fmt.Sprintf("provider fetch failed: %v", err),
			fmt.Errorf("%w: %v", ErrProviderFetch, err))
	}
	run.SetSupplierName(result.SupplierName)

	if len(result.Items) == 0 {
		prev, perr := o.store.GetLatestCompletedLog(ctx, supplierID)
		if perr != nil {
			o.logger.Warn("Could not load previous run for empty-feed check",
				zap.String("supplier_id", supplierID),
				zap.Error(perr))
		}
		if prev != nil && prev.VariantsSynced > 0 {
			util.ProviderFetchFailuresTotal.Inc()
			reason := fmt.Sprintf("empty feed: previous completed run synced %d variants", prev.VariantsSynced)
			return o.failRun(run, source, reason, fmt.Errorf("%w: %s", ErrProviderFetch, reason))
		}
	}

	for sku, data := range result.Items {
		select {
		case <-ctx.Done():
			return o.failRun(run, source, fmt.Sprintf("run cancelled: %v", ctx.Err()),
				fmt.Errorf("sync run cancelled: %w", ctx.Err()))
		default:
		}

		persisted := o.syncSKU(ctx, run, supplierID, sku, data)
		run.IncVariants()
		run.AddChanges(persisted)
	}

	if err := run.Complete(); err != nil {
		return nil, err
	}
	if err := o.store.FinalizeSyncLog(ctx, run.Snapshot()); err != nil {
		o.logger.Error("Failed to finalize sync log",
			zap.String("run_id", run.ID()),
			zap.Error(err))
		return run.Result(), fmt.Errorf("failed to finalize sync log: %w", err)
	}

	util.SyncRunsTotal.WithLabelValues(models.SyncStatusCompleted, source).Inc()
	util.SyncRunDuration.Observe(run.Duration().Seconds())
	util.VariantsSyncedTotal.Add(float64(run.Snapshot().VariantsSynced))

	if o.publisher != nil {
		if err := o.publisher.PublishSyncCompleted(ctx, run.Snapshot()); err != nil {
			o.logger.Error("Failed to publish SyncCompleted event",
				zap.String("run_id", run.ID()),
				zap.Error(err))
		}
	}

	res := run.Result()
	o.logger.Info("Sync run completed",
		zap.String("run_id", run.ID()),
		zap.String("supplier_id", supplierID),
		zap.Int("variants_synced", res.VariantsSynced),
		zap.Int("changes_detected", res.ChangesDetected),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("duration", res.Duration))

	return res, nil
}

// syncSKU diffs and persists a single SKU. The change writes and the
// snapshot write form one logical step: if any change write fails, the
// snapshot is not advanced, so the SKU is re-diffed against the old
// authoritative record on the next run. Returns the number of change
// records actually persisted.
func (o *Orchestrator) syncSKU(ctx context.Context, run *RunLog, supplierID, sku string, data models.SupplierInventoryData) int {
	ctx, span := util.StartSpan(ctx, "SyncOrchestrator.syncSKU")
	defer span.End()

	old, err := o.store.GetSnapshot(ctx, supplierID, sku)
	if err != nil {
		run.AppendError(fmt.Sprintf("sku %s: load snapshot: %v", sku, err))
		util.SKUErrorsTotal.Inc()
		return 0
	}

	changes := o.detector.Diff(old, data)
	now := time.Now().UTC()

	persisted := 0
	for i := range changes {
		change := changes[i]
		change.ID = uuid.New().String()
		change.RunID = run.ID()
		change.SupplierID = supplierID
		change.DetectedAt = now

		if err := o.store.CreateChange(ctx, &change); err != nil {
			run.AppendError(fmt.Sprintf("sku %s: persist %s change: %v", sku, change.ChangeType, err))
			util.SKUErrorsTotal.Inc()
			return persisted
		}
		persisted++
		util.ChangesDetectedTotal.WithLabelValues(change.ChangeType).Inc()

		if o.publisher != nil {
			if err := o.publisher.PublishChangeDetected(ctx, &change); err != nil {
				o.logger.Error("Failed to publish InventoryChangeDetected event",
					zap.String("change_id", change.ID),
					zap.Error(err))
			}
		}
	}

	rec := &models.SupplierInventoryRecord{
		SupplierID:    supplierID,
		SKU:           sku,
		VariantID:     data.VariantID,
		Quantity:      data.Quantity,
		Price:         data.Price,
		LeadTimeDays:  data.LeadTimeDays,
		IsAvailable:   data.IsAvailable,
		BackorderDate: data.BackorderDate,
		FirstSeenAt:   now,
		LastSeenAt:    now,
		UpdatedAt:     now,
	}
	if old != nil {
		rec.FirstSeenAt = old.FirstSeenAt
	}

	if err := o.store.PutSnapshot(ctx, rec); err != nil {
		run.AppendError(fmt.Sprintf("sku %s: persist snapshot: %v", sku, err))
		util.SKUErrorsTotal.Inc()
	}

	return persisted
}

// failRun finalizes a run as failed and returns its result together with the
// run-level error. The terminal write uses a fresh context so a cancelled
// run still gets its log row finalized.
func (o *Orchestrator) failRun(run *RunLog, source, reason string, cause error) (*models.SyncResult, error) {
	if err := run.Fail(reason); err != nil {
		return run.Result(), cause
	}

	finCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.FinalizeSyncLog(finCtx, run.Snapshot()); err != nil {
		o.logger.Error("Failed to finalize failed sync log",
			zap.String("run_id", run.ID()),
			zap.Error(err))
	}

	util.SyncRunsTotal.WithLabelValues(models.SyncStatusFailed, source).Inc()
	util.SyncRunDuration.Observe(run.Duration().Seconds())

	if o.publisher != nil {
		if err := o.publisher.PublishSyncFailed(finCtx, run.Snapshot(), reason); err != nil {
			o.logger.Error("Failed to publish SyncFailed event",
				zap.String("run_id", run.ID()),
				zap.Error(err))
		}
	}

	o.logger.Warn("Sync run failed",
		zap.String("run_id", run.ID()),
		zap.String("supplier_id", run.Snapshot().SupplierID),
		zap.String("reason", reason))

	return run.Result(), cause
}

func (o *Orchestrator) tryAcquire(supplierID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[supplierID] {
		return false
	}
	o.active[supplierID] = true
	return true
}

func (o *Orchestrator) release(supplierID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, supplierID)
}
