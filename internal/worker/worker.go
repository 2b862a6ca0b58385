package worker

import (
	"context"
	"encoding/json"
	"errors"

	"inventory-sync-service/internal/broker"
	"inventory-sync-service/internal/models"
	"inventory-sync-service/internal/service"
	"inventory-sync-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// SyncRequestWorker consumes sync-request messages and turns each into a
// webhook-sourced run. Redelivery is safe: the per-supplier run guard plus
// idempotent diffing mean a duplicate request cannot duplicate change history.
type SyncRequestWorker struct {
	consumer     *broker.Consumer
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

// NewSyncRequestWorker creates a new sync request worker
func NewSyncRequestWorker(consumer *broker.Consumer, orchestrator *service.Orchestrator) *SyncRequestWorker {
	return &SyncRequestWorker{
		consumer:     consumer,
		orchestrator: orchestrator,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *SyncRequestWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sync request worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *SyncRequestWorker) Stop() error {
	w.logger.Info("Stopping sync request worker")
	return w.consumer.Close()
}

func (w *SyncRequestWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		// Unparseable messages are committed, retrying cannot fix them.
		w.logger.Error("Dropping malformed message", zap.Error(err))
		return nil
	}

	if base.EventType != models.EventTypeSyncRequested {
		w.logger.Debug("Ignoring event", zap.String("event_type", base.EventType))
		return nil
	}

	var event models.SyncRequestedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Error("Dropping malformed sync request", zap.Error(err))
		return nil
	}
	if event.SupplierID == "" {
		w.logger.Error("Dropping sync request without supplier id",
			zap.String("event_id", event.EventID))
		return nil
	}

	res, err := w.orchestrator.Run(ctx, event.SupplierID, models.SyncSourceWebhook)
	if errors.Is(err, service.ErrConcurrentSync) {
		w.logger.Info("Sync request skipped, run already in flight",
			zap.String("supplier_id", event.SupplierID))
		return nil
	}
	if err != nil {
		w.logger.Error("Requested sync failed",
			zap.String("supplier_id", event.SupplierID),
			zap.Error(err))
		// The failure is recorded on the run log; do not redeliver.
		return nil
	}

	w.logger.Info("Requested sync finished",
		zap.String("supplier_id", event.SupplierID),
		zap.String("run_id", res.LogID),
		zap.Int("changes_detected", res.ChangesDetected))
	return nil
}
