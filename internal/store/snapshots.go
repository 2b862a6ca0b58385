package store

import (
	"context"
	"database/sql"

	"inventory-sync-service/internal/models"
)

// GetSnapshot retrieves the current snapshot for a supplier+SKU.
// Returns (nil, nil) when the SKU has never been seen.
func (s *Store) GetSnapshot(ctx context.Context, supplierID, sku string) (*models.SupplierInventoryRecord, error) {
	var rec models.SupplierInventoryRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT * FROM supplier_inventory_snapshot WHERE supplier_id = $1 AND sku = $2",
		supplierID, sku)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutSnapshot upserts a snapshot record, last write wins.
func (s *Store) PutSnapshot(ctx context.Context, rec *models.SupplierInventoryRecord) error {
	query := `
		INSERT INTO supplier_inventory_snapshot
			(supplier_id, sku, variant_id, quantity, price, lead_time_days,
			 is_available, backorder_date, first_seen_at, last_seen_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (supplier_id, sku) DO UPDATE SET
			variant_id     = EXCLUDED.variant_id,
			quantity       = EXCLUDED.quantity,
			price          = EXCLUDED.price,
			lead_time_days = EXCLUDED.lead_time_days,
			is_available   = EXCLUDED.is_available,
			backorder_date = EXCLUDED.backorder_date,
			last_seen_at   = EXCLUDED.last_seen_at,
			updated_at     = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		rec.SupplierID, rec.SKU, rec.VariantID, rec.Quantity, rec.Price,
		rec.LeadTimeDays, rec.IsAvailable, rec.BackorderDate,
		rec.FirstSeenAt, rec.LastSeenAt, rec.UpdatedAt)
	return err
}

// GetSnapshotsBySupplier retrieves all snapshots for one supplier.
func (s *Store) GetSnapshotsBySupplier(ctx context.Context, supplierID string) ([]models.SupplierInventoryRecord, error) {
	var recs []models.SupplierInventoryRecord
	err := s.db.SelectContext(ctx, &recs,
		"SELECT * FROM supplier_inventory_snapshot WHERE supplier_id = $1 ORDER BY sku",
		supplierID)
	return recs, err
}
