package broker

import (
	"context"
	"fmt"
	"time"

	"inventory-sync-service/internal/models"

	"github.com/google/uuid"
)

// EventPublisher publishes sync domain events. It satisfies
// service.EventPublisher.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// PublishChangeDetected publishes one persisted inventory change. Messages
// are keyed by supplier so per-supplier ordering is preserved.
func (ep *EventPublisher) PublishChangeDetected(ctx context.Context, change *models.InventoryChange) error {
	event := &models.InventoryChangeDetectedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeInventoryChangeDetected),
		ChangeID:   change.ID,
		RunID:      change.RunID,
		SupplierID: change.SupplierID,
		SKU:        change.SKU,
		VariantID:  change.VariantID,
		ChangeType: change.ChangeType,
		OldValue:   change.OldValue,
		NewValue:   change.NewValue,
	}
	return ep.producer.PublishEvent(ctx, supplierKey(change.SupplierID), event)
}

// PublishSyncCompleted publishes a run's completed summary.
func (ep *EventPublisher) PublishSyncCompleted(ctx context.Context, log *models.SyncRunLog) error {
	event := &models.SyncCompletedEvent{
		BaseEvent:       newBaseEvent(models.EventTypeSyncCompleted),
		LogID:           log.ID,
		SupplierID:      log.SupplierID,
		VariantsSynced:  log.VariantsSynced,
		ChangesDetected: log.ChangesDetected,
		ErrorCount:      len(log.Errors),
		DurationMs:      log.Duration().Milliseconds(),
	}
	return ep.producer.PublishEvent(ctx, supplierKey(log.SupplierID), event)
}

// PublishSyncFailed publishes a run-level failure.
func (ep *EventPublisher) PublishSyncFailed(ctx context.Context, log *models.SyncRunLog, reason string) error {
	event := &models.SyncFailedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeSyncFailed),
		LogID:      log.ID,
		SupplierID: log.SupplierID,
		Reason:     reason,
	}
	return ep.producer.PublishEvent(ctx, supplierKey(log.SupplierID), event)
}

func supplierKey(supplierID string) string {
	return fmt.Sprintf("supplier-%s", supplierID)
}
