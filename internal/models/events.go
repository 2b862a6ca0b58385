package models

import "time"

// Event types
const (
	EventTypeInventoryChangeDetected = "INVENTORY_CHANGE_DETECTED"
	EventTypeSyncCompleted           = "SYNC_COMPLETED"
	EventTypeSyncFailed              = "SYNC_FAILED"
	EventTypeSyncRequested           = "SYNC_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// InventoryChangeDetectedEvent is published for every persisted change record.
type InventoryChangeDetectedEvent struct {
	BaseEvent
	ChangeID   string `json:"change_id"`
	RunID      string `json:"run_id"`
	SupplierID string `json:"supplier_id"`
	SKU        string `json:"sku"`
	VariantID  string `json:"variant_id"`
	ChangeType string `json:"change_type"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
}

// SyncCompletedEvent is published when a run finalizes as completed.
type SyncCompletedEvent struct {
	BaseEvent
	LogID           string `json:"log_id"`
	SupplierID      string `json:"supplier_id"`
	VariantsSynced  int    `json:"variants_synced"`
	ChangesDetected int    `json:"changes_detected"`
	ErrorCount      int    `json:"error_count"`
	DurationMs      int64  `json:"duration_ms"`
}

// SyncFailedEvent is published when a run finalizes as failed.
type SyncFailedEvent struct {
	BaseEvent
	LogID      string `json:"log_id"`
	SupplierID string `json:"supplier_id"`
	Reason     string `json:"reason"`
}

// SyncRequestedEvent asks for a webhook-sourced run for one supplier.
// Producers outside this service publish it to the sync-requests topic.
type SyncRequestedEvent struct {
	BaseEvent
	SupplierID string `json:"supplier_id"`
}
