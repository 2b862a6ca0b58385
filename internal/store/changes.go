package store

import (
	"context"
	"database/sql"
	"fmt"

	"inventory-sync-service/internal/models"
)

// CreateChange appends a new inventory change record.
func (s *Store) CreateChange(ctx context.Context, change *models.InventoryChange) error {
	query := `
		INSERT INTO inventory_change
			(id, run_id, supplier_id, sku, variant_id, change_type,
			 old_value, new_value, detected_at, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)`

	_, err := s.db.ExecContext(ctx, query,
		change.ID, change.RunID, change.SupplierID, change.SKU, change.VariantID,
		change.ChangeType, change.OldValue, change.NewValue, change.DetectedAt)
	return err
}

// GetUnnotifiedChanges retrieves changes the notification collaborator has
// not picked up yet, oldest first.
func (s *Store) GetUnnotifiedChanges(ctx context.Context, limit int) ([]models.InventoryChange, error) {
	var changes []models.InventoryChange
	err := s.db.SelectContext(ctx, &changes,
		"SELECT * FROM inventory_change WHERE notified = false ORDER BY detected_at ASC LIMIT $1",
		limit)
	return changes, err
}

// GetChangesByRunID retrieves all changes produced by one run.
func (s *Store) GetChangesByRunID(ctx context.Context, runID string) ([]models.InventoryChange, error) {
	var changes []models.InventoryChange
	err := s.db.SelectContext(ctx, &changes,
		"SELECT * FROM inventory_change WHERE run_id = $1 ORDER BY detected_at ASC",
		runID)
	return changes, err
}

// MarkChangeNotified flips the notified flag, the only permitted mutation.
func (s *Store) MarkChangeNotified(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE inventory_change SET notified = true WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("change not found: %s", id)
	}
	return nil
}

// GetChangeByID retrieves a single change record.
func (s *Store) GetChangeByID(ctx context.Context, id string) (*models.InventoryChange, error) {
	var change models.InventoryChange
	err := s.db.GetContext(ctx, &change, "SELECT * FROM inventory_change WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("change not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &change, nil
}
