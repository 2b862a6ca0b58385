package service

import (
	"time"

	"inventory-sync-service/internal/models"

	"github.com/google/uuid"
)

// RunLog tracks one synchronization attempt through its state machine:
// running -> completed | failed, both terminal. A new attempt always gets a
// new RunLog; there is no transition back to running.
type RunLog struct {
	log      models.SyncRunLog
	terminal bool
}

// NewRunLog starts a run in the running state.
func NewRunLog(supplierID, supplierName, source string) *RunLog {
	return &RunLog{
		log: models.SyncRunLog{
			ID:           uuid.New().String(),
			SupplierID:   supplierID,
			SupplierName: supplierName,
			Source:       source,
			Status:       models.SyncStatusRunning,
			StartedAt:    time.Now().UTC(),
			Errors:       []string{},
		},
	}
}

// ID returns the run's log id.
func (r *RunLog) ID() string {
	return r.log.ID
}

// Status returns the current state.
func (r *RunLog) Status() string {
	return r.log.Status
}

// SetSupplierName records the supplier's display name once the feed reports it.
func (r *RunLog) SetSupplierName(name string) {
	if !r.terminal && name != "" {
		r.log.SupplierName = name
	}
}

// AppendError accumulates a per-SKU or transport error. The run keeps going;
// errors recorded here do not force a failed status.
func (r *RunLog) AppendError(msg string) {
	if r.terminal {
		return
	}
	r.log.Errors = append(r.log.Errors, msg)
}

// IncVariants counts one processed SKU.
func (r *RunLog) IncVariants() {
	if !r.terminal {
		r.log.VariantsSynced++
	}
}

// AddChanges counts persisted change records.
func (r *RunLog) AddChanges(n int) {
	if !r.terminal {
		r.log.ChangesDetected += n
	}
}

// Complete transitions running -> completed. Accumulated errors stay on the
// log; a completed run with non-empty errors is the best-effort outcome.
func (r *RunLog) Complete() error {
	return r.finalize(models.SyncStatusCompleted, "")
}

// Fail transitions running -> failed with a run-level reason.
func (r *RunLog) Fail(reason string) error {
	return r.finalize(models.SyncStatusFailed, reason)
}

func (r *RunLog) finalize(status, reason string) error {
	if r.terminal {
		return ErrRunFinalized
	}
	if reason != "" {
		r.log.Errors = append(r.log.Errors, reason)
	}
	now := time.Now().UTC()
	r.log.Status = status
	r.log.FinishedAt = &now
	r.terminal = true
	return nil
}

// Duration returns elapsed wall time, zero until the run finalizes.
func (r *RunLog) Duration() time.Duration {
	return r.log.Duration()
}

// Snapshot returns a copy of the underlying log row for persistence.
func (r *RunLog) Snapshot() *models.SyncRunLog {
	out := r.log
	out.Errors = append(out.Errors[:0:0], r.log.Errors...)
	return &out
}

// Result summarizes the run for callers.
func (r *RunLog) Result() *models.SyncResult {
	return &models.SyncResult{
		LogID:           r.log.ID,
		SupplierID:      r.log.SupplierID,
		Status:          r.log.Status,
		VariantsSynced:  r.log.VariantsSynced,
		ChangesDetected: r.log.ChangesDetected,
		Errors:          append([]string(nil), r.log.Errors...),
		Duration:        r.Duration(),
	}
}
