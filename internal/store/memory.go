package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"inventory-sync-service/internal/models"
)

// Memory is an in-memory implementation of the same persistence surface as
// Store. It backs tests and single-process deployments that do not need a
// database; every method is safe for concurrent use and each write is atomic.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]models.SupplierInventoryRecord // keyed supplierID + "\x00" + sku
	changes   []models.InventoryChange
	changeIdx map[string]int // change id -> index into changes
	logs      map[string]models.SyncRunLog
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		snapshots: make(map[string]models.SupplierInventoryRecord),
		changeIdx: make(map[string]int),
		logs:      make(map[string]models.SyncRunLog),
	}
}

func snapshotKey(supplierID, sku string) string {
	return supplierID + "\x00" + sku
}

// GetSnapshot retrieves the current snapshot, (nil, nil) when absent.
func (m *Memory) GetSnapshot(_ context.Context, supplierID, sku string) (*models.SupplierInventoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.snapshots[snapshotKey(supplierID, sku)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// PutSnapshot upserts a snapshot record.
func (m *Memory) PutSnapshot(_ context.Context, rec *models.SupplierInventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[snapshotKey(rec.SupplierID, rec.SKU)] = *rec
	return nil
}

// GetSnapshotsBySupplier retrieves all snapshots for one supplier.
func (m *Memory) GetSnapshotsBySupplier(_ context.Context, supplierID string) ([]models.SupplierInventoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []models.SupplierInventoryRecord
	for _, rec := range m.snapshots {
		if rec.SupplierID == supplierID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].SKU < recs[j].SKU })
	return recs, nil
}

// CreateChange appends a change record.
func (m *Memory) CreateChange(_ context.Context, change *models.InventoryChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.changeIdx[change.ID]; exists {
		return fmt.Errorf("duplicate change id: %s", change.ID)
	}
	m.changeIdx[change.ID] = len(m.changes)
	m.changes = append(m.changes, *change)
	return nil
}

// GetUnnotifiedChanges retrieves unnotified changes, oldest first.
func (m *Memory) GetUnnotifiedChanges(_ context.Context, limit int) ([]models.InventoryChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.InventoryChange
	for _, c := range m.changes {
		if !c.Notified {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// GetChangesByRunID retrieves all changes produced by one run.
func (m *Memory) GetChangesByRunID(_ context.Context, runID string) ([]models.InventoryChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.InventoryChange
	for _, c := range m.changes {
		if c.RunID == runID {
			out = append(out, c)
		}
	}
	return out, nil
}

// MarkChangeNotified flips the notified flag.
func (m *Memory) MarkChangeNotified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.changeIdx[id]
	if !ok {
		return fmt.Errorf("change not found: %s", id)
	}
	m.changes[idx].Notified = true
	return nil
}

// GetChangeByID retrieves a single change record.
func (m *Memory) GetChangeByID(_ context.Context, id string) (*models.InventoryChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.changeIdx[id]
	if !ok {
		return nil, fmt.Errorf("change not found: %s", id)
	}
	c := m.changes[idx]
	return &c, nil
}

// CreateSyncLog inserts a new run log row.
func (m *Memory) CreateSyncLog(_ context.Context, log *models.SyncRunLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.logs[log.ID]; exists {
		return fmt.Errorf("duplicate sync log id: %s", log.ID)
	}
	m.logs[log.ID] = cloneLog(log)
	return nil
}

// FinalizeSyncLog applies the single terminal update for a run.
func (m *Memory) FinalizeSyncLog(_ context.Context, log *models.SyncRunLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.logs[log.ID]
	if !ok || existing.Status != models.SyncStatusRunning {
		return fmt.Errorf("sync log not running: %s", log.ID)
	}
	m.logs[log.ID] = cloneLog(log)
	return nil
}

// GetSyncLogByID retrieves one run log.
func (m *Memory) GetSyncLogByID(_ context.Context, id string) (*models.SyncRunLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log, ok := m.logs[id]
	if !ok {
		return nil, fmt.Errorf("sync log not found: %s", id)
	}
	return &log, nil
}

// GetSyncLogsBySupplier retrieves run logs for a supplier, newest first.
func (m *Memory) GetSyncLogsBySupplier(_ context.Context, supplierID string, limit int) ([]models.SyncRunLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var logs []models.SyncRunLog
	for _, log := range m.logs {
		if log.SupplierID == supplierID {
			logs = append(logs, log)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].StartedAt.After(logs[j].StartedAt) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// GetLatestCompletedLog retrieves the most recent completed run for a supplier.
func (m *Memory) GetLatestCompletedLog(_ context.Context, supplierID string) (*models.SyncRunLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.SyncRunLog
	for id := range m.logs {
		log := m.logs[id]
		if log.SupplierID != supplierID || log.Status != models.SyncStatusCompleted {
			continue
		}
		if latest == nil || log.StartedAt.After(latest.StartedAt) {
			l := log
			latest = &l
		}
	}
	return latest, nil
}

// GetStuckSyncLogs retrieves running logs older than the cutoff.
func (m *Memory) GetStuckSyncLogs(_ context.Context, olderThan time.Time) ([]models.SyncRunLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var logs []models.SyncRunLog
	for _, log := range m.logs {
		if log.Status == models.SyncStatusRunning && log.StartedAt.Before(olderThan) {
			logs = append(logs, log)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].StartedAt.Before(logs[j].StartedAt) })
	return logs, nil
}

// MarkSyncLogFailed force-fails a stuck run.
func (m *Memory) MarkSyncLogFailed(_ context.Context, id, errMsg string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log, ok := m.logs[id]
	if !ok || log.Status != models.SyncStatusRunning {
		return fmt.Errorf("sync log not running: %s", id)
	}
	log.Status = models.SyncStatusFailed
	log.FinishedAt = &finishedAt
	log.Errors = append(log.Errors, errMsg)
	m.logs[id] = log
	return nil
}

func cloneLog(log *models.SyncRunLog) models.SyncRunLog {
	out := *log
	out.Errors = append(out.Errors[:0:0], log.Errors...)
	return out
}
