package detector

import (
	"time"

	"inventory-sync-service/internal/models"
)

// statusRule classifies a SKU's stock state. Rules are evaluated in order
// and the first match wins.
type statusRule struct {
	label string
	match func(quantity int, isAvailable bool, backorderDate *time.Time, lowStock int) bool
}

var statusRules = []statusRule{
	{
		label: models.StockStatusDiscontinued,
		match: func(q int, avail bool, bo *time.Time, _ int) bool {
			// Supplier-reported discontinuation: unavailable with no stock path.
			return !avail && q == 0 && bo == nil
		},
	},
	{
		label: models.StockStatusBackordered,
		match: func(_ int, _ bool, bo *time.Time, _ int) bool {
			return bo != nil
		},
	},
	{
		label: models.StockStatusOutOfStock,
		match: func(q int, _ bool, _ *time.Time, _ int) bool {
			return q == 0
		},
	},
	{
		label: models.StockStatusLowStock,
		match: func(q int, _ bool, _ *time.Time, lowStock int) bool {
			return q <= lowStock
		},
	},
	{
		label: models.StockStatusInStock,
		match: func(_ int, _ bool, _ *time.Time, _ int) bool {
			return true
		},
	},
}

// DeriveStatus maps raw stock fields to a status label.
func (d *Detector) DeriveStatus(quantity int, isAvailable bool, backorderDate *time.Time) string {
	for _, rule := range statusRules {
		if rule.match(quantity, isAvailable, backorderDate, d.cfg.LowStockThreshold) {
			return rule.label
		}
	}
	return models.StockStatusInStock
}
