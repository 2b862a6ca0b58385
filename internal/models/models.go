package models

import (
	"time"

	"github.com/lib/pq"
)

// SupplierInventoryData is one SKU's state as reported by a supplier feed.
// It is the unpersisted input to a sync run.
type SupplierInventoryData struct {
	SKU           string     `json:"sku"`
	VariantID     string     `json:"variant_id"`
	Quantity      int        `json:"quantity"`
	Price         float64    `json:"price"`
	LeadTimeDays  *int       `json:"lead_time_days,omitempty"`
	IsAvailable   bool       `json:"is_available"`
	BackorderDate *time.Time `json:"backorder_date,omitempty"`
}

// SupplierInventoryRecord is the last-known-good snapshot for one supplier+SKU.
type SupplierInventoryRecord struct {
	SupplierID    string     `db:"supplier_id" json:"supplier_id"`
	SKU           string     `db:"sku" json:"sku"`
	VariantID     string     `db:"variant_id" json:"variant_id"`
	Quantity      int        `db:"quantity" json:"quantity"`
	Price         float64    `db:"price" json:"price"`
	LeadTimeDays  *int       `db:"lead_time_days" json:"lead_time_days,omitempty"`
	IsAvailable   bool       `db:"is_available" json:"is_available"`
	BackorderDate *time.Time `db:"backorder_date" json:"backorder_date,omitempty"`
	FirstSeenAt   time.Time  `db:"first_seen_at" json:"first_seen_at"`
	LastSeenAt    time.Time  `db:"last_seen_at" json:"last_seen_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// InventoryChange is an append-only record of one observed field transition.
// Only the Notified flag is ever mutated after creation.
type InventoryChange struct {
	ID         string    `db:"id" json:"id"`
	RunID      string    `db:"run_id" json:"run_id"`
	SupplierID string    `db:"supplier_id" json:"supplier_id"`
	SKU        string    `db:"sku" json:"sku"`
	VariantID  string    `db:"variant_id" json:"variant_id"`
	ChangeType string    `db:"change_type" json:"change_type"`
	OldValue   string    `db:"old_value" json:"old_value"`
	NewValue   string    `db:"new_value" json:"new_value"`
	DetectedAt time.Time `db:"detected_at" json:"detected_at"`
	Notified   bool      `db:"notified" json:"notified"`
}

// SyncRunLog is the audit record for one synchronization attempt.
type SyncRunLog struct {
	ID              string         `db:"id" json:"id"`
	SupplierID      string         `db:"supplier_id" json:"supplier_id"`
	SupplierName    string         `db:"supplier_name" json:"supplier_name"`
	Source          string         `db:"source" json:"source"`
	Status          string         `db:"status" json:"status"`
	StartedAt       time.Time      `db:"started_at" json:"started_at"`
	FinishedAt      *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
	VariantsSynced  int            `db:"variants_synced" json:"variants_synced"`
	ChangesDetected int            `db:"changes_detected" json:"changes_detected"`
	Errors          pq.StringArray `db:"errors" json:"errors"`
}

// Duration returns the run's wall time, zero while the run is still running.
func (l *SyncRunLog) Duration() time.Duration {
	if l.FinishedAt == nil {
		return 0
	}
	return l.FinishedAt.Sub(l.StartedAt)
}

// SyncResult summarizes a finished run for callers.
type SyncResult struct {
	LogID           string        `json:"log_id"`
	SupplierID      string        `json:"supplier_id"`
	Status          string        `json:"status"`
	VariantsSynced  int           `json:"variants_synced"`
	ChangesDetected int           `json:"changes_detected"`
	Errors          []string      `json:"errors,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
}

// Change types
const (
	ChangeTypeQuantity = "quantity"
	ChangeTypePrice    = "price"
	ChangeTypeStatus   = "status"
	ChangeTypeLeadTime = "leadtime"
)

// Derived stock status labels
const (
	StockStatusInStock      = "in_stock"
	StockStatusLowStock     = "low_stock"
	StockStatusOutOfStock   = "out_of_stock"
	StockStatusBackordered  = "backordered"
	StockStatusDiscontinued = "discontinued"
)

// Sync run statuses
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// Sync trigger sources
const (
	SyncSourceScheduled = "scheduled"
	SyncSourceManual    = "manual"
	SyncSourceWebhook   = "webhook"
)
