package service

import (
	"testing"

	"inventory-sync-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLogStartsRunning(t *testing.T) {
	run := NewRunLog("sup-1", "Acme Supply", models.SyncSourceScheduled)

	snap := run.Snapshot()
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, models.SyncStatusRunning, snap.Status)
	assert.Equal(t, "sup-1", snap.SupplierID)
	assert.Equal(t, "Acme Supply", snap.SupplierName)
	assert.Nil(t, snap.FinishedAt)
	assert.Zero(t, run.Duration())
}

func TestRunLogCompleteIsTerminal(t *testing.T) {
	run := NewRunLog("sup-1", "Acme", models.SyncSourceManual)
	run.IncVariants()
	run.AddChanges(2)

	require.NoError(t, run.Complete())

	snap := run.Snapshot()
	assert.Equal(t, models.SyncStatusCompleted, snap.Status)
	require.NotNil(t, snap.FinishedAt)
	assert.Equal(t, 1, snap.VariantsSynced)
	assert.Equal(t, 2, snap.ChangesDetected)
	assert.True(t, run.Duration() >= 0)

	// No transition out of a terminal state.
	assert.ErrorIs(t, run.Complete(), ErrRunFinalized)
	assert.ErrorIs(t, run.Fail("too late"), ErrRunFinalized)

	// Terminal logs are immutable.
	run.AppendError("dropped")
	run.IncVariants()
	run.AddChanges(5)
	after := run.Snapshot()
	assert.Equal(t, snap.VariantsSynced, after.VariantsSynced)
	assert.Equal(t, snap.ChangesDetected, after.ChangesDetected)
	assert.Equal(t, len(snap.Errors), len(after.Errors))
}

func TestRunLogFailRecordsReason(t *testing.T) {
	run := NewRunLog("sup-1", "Acme", models.SyncSourceWebhook)

	require.NoError(t, run.Fail("provider fetch failed: timeout"))

	snap := run.Snapshot()
	assert.Equal(t, models.SyncStatusFailed, snap.Status)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "provider fetch failed")
	assert.ErrorIs(t, run.Complete(), ErrRunFinalized)
}

func TestRunLogCompletesDespiteAccumulatedErrors(t *testing.T) {
	// Per-SKU errors are best-effort: the run still completes.
	run := NewRunLog("sup-1", "Acme", models.SyncSourceScheduled)
	run.AppendError("sku A: persist snapshot: disk full")
	run.AppendError("sku B: load snapshot: timeout")

	require.NoError(t, run.Complete())

	snap := run.Snapshot()
	assert.Equal(t, models.SyncStatusCompleted, snap.Status)
	assert.Len(t, snap.Errors, 2)
}

func TestRunLogResultMatchesSnapshot(t *testing.T) {
	run := NewRunLog("sup-1", "Acme", models.SyncSourceManual)
	run.IncVariants()
	run.IncVariants()
	run.AddChanges(1)
	run.AppendError("sku X: persist quantity change: connection reset")
	require.NoError(t, run.Complete())

	res := run.Result()
	assert.Equal(t, run.ID(), res.LogID)
	assert.Equal(t, models.SyncStatusCompleted, res.Status)
	assert.Equal(t, 2, res.VariantsSynced)
	assert.Equal(t, 1, res.ChangesDetected)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, run.Duration(), res.Duration)
}
