package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inventory-sync-service/internal/models"
)

// CreateSyncLog inserts a new run log row (status=running).
func (s *Store) CreateSyncLog(ctx context.Context, log *models.SyncRunLog) error {
	query := `
		INSERT INTO sync_run_log
			(id, supplier_id, supplier_name, source, status, started_at,
			 variants_synced, changes_detected, errors)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, '{}')`

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.SupplierID, log.SupplierName, log.Source, log.Status, log.StartedAt)
	return err
}

// FinalizeSyncLog writes the single terminal update for a run. The status
// guard makes the terminal transition happen at most once.
func (s *Store) FinalizeSyncLog(ctx context.Context, log *models.SyncRunLog) error {
	query := `
		UPDATE sync_run_log
		SET status = $1, finished_at = $2, supplier_name = $3,
		    variants_synced = $4, changes_detected = $5, errors = $6
		WHERE id = $7 AND status = 'running'`

	res, err := s.db.ExecContext(ctx, query,
		log.Status, log.FinishedAt, log.SupplierName,
		log.VariantsSynced, log.ChangesDetected, log.Errors, log.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("sync log not running: %s", log.ID)
	}
	return nil
}

// GetSyncLogByID retrieves one run log.
func (s *Store) GetSyncLogByID(ctx context.Context, id string) (*models.SyncRunLog, error) {
	var log models.SyncRunLog
	err := s.db.GetContext(ctx, &log, "SELECT * FROM sync_run_log WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync log not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetSyncLogsBySupplier retrieves run logs for a supplier, newest first.
func (s *Store) GetSyncLogsBySupplier(ctx context.Context, supplierID string, limit int) ([]models.SyncRunLog, error) {
	var logs []models.SyncRunLog
	err := s.db.SelectContext(ctx, &logs,
		"SELECT * FROM sync_run_log WHERE supplier_id = $1 ORDER BY started_at DESC LIMIT $2",
		supplierID, limit)
	return logs, err
}

// GetLatestCompletedLog retrieves the most recent completed run for a
// supplier, or (nil, nil) when none exists.
func (s *Store) GetLatestCompletedLog(ctx context.Context, supplierID string) (*models.SyncRunLog, error) {
	var log models.SyncRunLog
	err := s.db.GetContext(ctx, &log,
		"SELECT * FROM sync_run_log WHERE supplier_id = $1 AND status = 'completed' ORDER BY started_at DESC LIMIT 1",
		supplierID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetStuckSyncLogs retrieves runs still marked running that started before
// the cutoff. These are crash leftovers awaiting reconciliation.
func (s *Store) GetStuckSyncLogs(ctx context.Context, olderThan time.Time) ([]models.SyncRunLog, error) {
	var logs []models.SyncRunLog
	err := s.db.SelectContext(ctx, &logs,
		"SELECT * FROM sync_run_log WHERE status = 'running' AND started_at < $1 ORDER BY started_at ASC",
		olderThan)
	return logs, err
}

// MarkSyncLogFailed force-fails a stuck run during reconciliation.
func (s *Store) MarkSyncLogFailed(ctx context.Context, id, errMsg string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_run_log
		 SET status = 'failed', finished_at = $1, errors = array_append(errors, $2)
		 WHERE id = $3 AND status = 'running'`,
		finishedAt, errMsg, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("sync log not running: %s", id)
	}
	return nil
}
