package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"inventory-sync-service/internal/models"
	"inventory-sync-service/internal/service"
	"inventory-sync-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueryStore is the read/ack surface the HTTP API needs. Satisfied by
// store.Store and store.Memory.
type QueryStore interface {
	GetSyncLogByID(ctx context.Context, id string) (*models.SyncRunLog, error)
	GetSyncLogsBySupplier(ctx context.Context, supplierID string, limit int) ([]models.SyncRunLog, error)
	GetUnnotifiedChanges(ctx context.Context, limit int) ([]models.InventoryChange, error)
	MarkChangeNotified(ctx context.Context, id string) error
	GetSnapshot(ctx context.Context, supplierID, sku string) (*models.SupplierInventoryRecord, error)
	GetSnapshotsBySupplier(ctx context.Context, supplierID string) ([]models.SupplierInventoryRecord, error)
}

// Handler contains HTTP handlers
type Handler struct {
	orchestrator *service.Orchestrator
	store        QueryStore
}

// NewHandler creates a new HTTP handler
func NewHandler(orchestrator *service.Orchestrator, store QueryStore) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        store,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/suppliers/:id/sync", h.triggerSync(models.SyncSourceManual))
		v1.POST("/webhooks/suppliers/:id/sync", h.triggerSync(models.SyncSourceWebhook))
		v1.GET("/suppliers/:id/snapshots", h.getSnapshots)
		v1.GET("/sync-logs", h.listSyncLogs)
		v1.GET("/sync-logs/:id", h.getSyncLog)
		v1.GET("/changes", h.listChanges)
		v1.POST("/changes/:id/notified", h.markChangeNotified)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// triggerSync starts a run for one supplier with the given source.
func (h *Handler) triggerSync(source string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplierID := c.Param("id")
		if supplierID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing supplier ID"})
			return
		}

		res, err := h.orchestrator.Run(c.Request.Context(), supplierID, source)
		switch {
		case errors.Is(err, service.ErrConcurrentSync):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Sync already running for supplier",
			})
		case errors.Is(err, service.ErrProviderFetch):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Supplier feed unavailable",
				"details": err.Error(),
				"result":  res,
			})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Sync failed",
				"details": err.Error(),
			})
		default:
			c.JSON(http.StatusOK, res)
		}
	}
}

// listSyncLogs returns run logs for a supplier, newest first.
func (h *Handler) listSyncLogs(c *gin.Context) {
	supplierID := c.Query("supplier_id")
	if supplierID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing supplier_id"})
		return
	}

	limit := parseLimit(c.DefaultQuery("limit", "50"))
	logs, err := h.store.GetSyncLogsBySupplier(c.Request.Context(), supplierID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list sync logs",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// getSyncLog returns one run log.
func (h *Handler) getSyncLog(c *gin.Context) {
	log, err := h.store.GetSyncLogByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Sync log not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, log)
}

// listChanges returns unnotified changes for the notification collaborator.
func (h *Handler) listChanges(c *gin.Context) {
	limit := parseLimit(c.DefaultQuery("limit", "100"))
	changes, err := h.store.GetUnnotifiedChanges(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list changes",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

// markChangeNotified flips the notified flag on one change record.
func (h *Handler) markChangeNotified(c *gin.Context) {
	if err := h.store.MarkChangeNotified(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Change not found",
			"details": err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// getSnapshots returns a supplier's snapshots, or one SKU when ?sku= is set.
func (h *Handler) getSnapshots(c *gin.Context) {
	supplierID := c.Param("id")

	if sku := c.Query("sku"); sku != "" {
		rec, err := h.store.GetSnapshot(c.Request.Context(), supplierID, sku)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to load snapshot",
				"details": err.Error(),
			})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Snapshot not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
		return
	}

	recs, err := h.store.GetSnapshotsBySupplier(c.Request.Context(), supplierID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list snapshots",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": recs})
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
