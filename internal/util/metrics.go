package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Total number of sync runs by terminal status and trigger source",
	}, []string{"status", "source"})

	SyncRunsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_runs_rejected_total",
		Help: "Total number of sync runs rejected because one was already in flight",
	})

	SyncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Duration of sync runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	VariantsSyncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_variants_synced_total",
		Help: "Total number of SKUs processed across all runs",
	})

	ChangesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_changes_detected_total",
		Help: "Total number of inventory changes persisted, by change type",
	}, []string{"type"})

	SKUErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_sku_errors_total",
		Help: "Total number of per-SKU errors accumulated into run logs",
	})

	ProviderFetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_provider_fetch_failures_total",
		Help: "Total number of provider bulk fetches that failed a run",
	})

	StuckRunsReconciledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_stuck_runs_reconciled_total",
		Help: "Total number of stuck running logs marked failed at reconciliation",
	})

	EventPublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_event_publish_failures_total",
		Help: "Total number of event publish failures, by event type",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
