package service

import (
	"context"
	"time"

	"inventory-sync-service/internal/models"
)

// Store is the persistence surface the orchestrator and scheduler depend on.
// Satisfied by store.Store (Postgres) and store.Memory.
type Store interface {
	GetSnapshot(ctx context.Context, supplierID, sku string) (*models.SupplierInventoryRecord, error)
	PutSnapshot(ctx context.Context, rec *models.SupplierInventoryRecord) error

	CreateChange(ctx context.Context, change *models.InventoryChange) error

	CreateSyncLog(ctx context.Context, log *models.SyncRunLog) error
	FinalizeSyncLog(ctx context.Context, log *models.SyncRunLog) error
	GetLatestCompletedLog(ctx context.Context, supplierID string) (*models.SyncRunLog, error)
	GetStuckSyncLogs(ctx context.Context, olderThan time.Time) ([]models.SyncRunLog, error)
	MarkSyncLogFailed(ctx context.Context, id, errMsg string, finishedAt time.Time) error
}

// Locker is an optional distributed guard layered over the orchestrator's
// in-process per-supplier guard for multi-instance deployments.
type Locker interface {
	Acquire(ctx context.Context, supplierID string) (bool, error)
	Release(ctx context.Context, supplierID string) error
}

// EventPublisher emits domain events for external collaborators. Publish
// failures never fail a run; callers log returned errors and continue.
type EventPublisher interface {
	PublishChangeDetected(ctx context.Context, change *models.InventoryChange) error
	PublishSyncCompleted(ctx context.Context, log *models.SyncRunLog) error
	PublishSyncFailed(ctx context.Context, log *models.SyncRunLog, reason string) error
}
