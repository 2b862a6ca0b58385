package detector

import (
	"math"
	"strconv"

	"inventory-sync-service/internal/models"
)

// Config tunes the comparison rules.
type Config struct {
	// PriceEpsilon is the tolerance for price comparison. Zero means exact.
	PriceEpsilon float64
	// LowStockThreshold is the quantity at or under which a SKU counts as low stock.
	LowStockThreshold int
}

// DefaultLowStockThreshold applies when no threshold is configured.
const DefaultLowStockThreshold = 5

// Detector compares inventory snapshots and produces change events.
// It performs no I/O; Diff is deterministic for the same inputs.
type Detector struct {
	cfg Config
}

// New creates a detector with the given config.
func New(cfg Config) *Detector {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = DefaultLowStockThreshold
	}
	return &Detector{cfg: cfg}
}

// Diff compares the last-known snapshot against freshly fetched data and
// returns unsaved change records. A nil old record means the SKU is being
// seen for the first time: the snapshot is established silently and no
// changes are reported. Field rules are evaluated independently, so one SKU
// can yield several changes in a single run.
func (d *Detector) Diff(old *models.SupplierInventoryRecord, data models.SupplierInventoryData) []models.InventoryChange {
	if old == nil {
		return nil
	}

	var changes []models.InventoryChange
	emit := func(changeType, oldValue, newValue string) {
		changes = append(changes, models.InventoryChange{
			SKU:        data.SKU,
			VariantID:  data.VariantID,
			ChangeType: changeType,
			OldValue:   oldValue,
			NewValue:   newValue,
		})
	}

	if old.Quantity != data.Quantity {
		emit(models.ChangeTypeQuantity, strconv.Itoa(old.Quantity), strconv.Itoa(data.Quantity))
	}

	if math.Abs(old.Price-data.Price) > d.cfg.PriceEpsilon {
		emit(models.ChangeTypePrice, formatPrice(old.Price), formatPrice(data.Price))
	}

	oldStatus := d.DeriveStatus(old.Quantity, old.IsAvailable, old.BackorderDate)
	newStatus := d.DeriveStatus(data.Quantity, data.IsAvailable, data.BackorderDate)
	if oldStatus != newStatus {
		emit(models.ChangeTypeStatus, oldStatus, newStatus)
	}

	if !leadTimeEqual(old.LeadTimeDays, data.LeadTimeDays) {
		emit(models.ChangeTypeLeadTime, formatLeadTime(old.LeadTimeDays), formatLeadTime(data.LeadTimeDays))
	}

	return changes
}

func leadTimeEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// formatLeadTime renders an absent lead time as "none" so transitions to and
// from absent stay readable in change records.
func formatLeadTime(days *int) string {
	if days == nil {
		return "none"
	}
	return strconv.Itoa(*days)
}
