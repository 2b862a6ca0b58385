package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"inventory-sync-service/internal/detector"
	"inventory-sync-service/internal/models"
	"inventory-sync-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	items   map[string]models.SupplierInventoryData
	err     error
	onFetch func(ctx context.Context)
}

func (p *fakeProvider) FetchInventory(ctx context.Context, _ string) (*BulkInventoryResult, error) {
	if p.onFetch != nil {
		p.onFetch(ctx)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &BulkInventoryResult{SupplierName: p.name, Items: p.items}, nil
}

// blockingProvider parks inside the fetch until released, so two runs can be
// forced to overlap.
type blockingProvider struct {
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

func (p *blockingProvider) FetchInventory(ctx context.Context, _ string) (*BulkInventoryResult, error) {
	p.startOnce.Do(func() { close(p.started) })
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &BulkInventoryResult{Items: map[string]models.SupplierInventoryData{}}, nil
}

// flakyStore fails change writes for one SKU.
type flakyStore struct {
	*store.Memory
	failSKU string
}

func (f *flakyStore) CreateChange(ctx context.Context, change *models.InventoryChange) error {
	if change.SKU == f.failSKU {
		return errors.New("disk full")
	}
	return f.Memory.CreateChange(ctx, change)
}

func item(sku string, quantity int, price float64) models.SupplierInventoryData {
	return models.SupplierInventoryData{
		SKU:         sku,
		VariantID:   "var-" + sku,
		Quantity:    quantity,
		Price:       price,
		IsAvailable: true,
	}
}

func newTestOrchestrator(s Store, p InventoryProvider) *Orchestrator {
	return NewOrchestrator(s, detector.New(detector.Config{}), p, nil, nil)
}

func TestRunFirstSightingEstablishesSnapshotsSilently(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeProvider{
		name:  "Acme Supply",
		items: map[string]models.SupplierInventoryData{"ABC123": item("ABC123", 5, 12.00)},
	}
	orch := newTestOrchestrator(mem, provider)

	res, err := orch.Run(context.Background(), "sup-1", models.SyncSourceManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncStatusCompleted, res.Status)
	assert.Equal(t, 1, res.VariantsSynced)
	assert.Equal(t, 0, res.ChangesDetected)
	assert.Empty(t, res.Errors)

	rec, err := mem.GetSnapshot(context.Background(), "sup-1", "ABC123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 5, rec.Quantity)
	assert.Equal(t, 12.00, rec.Price)

	log, err := mem.GetSyncLogByID(context.Background(), res.LogID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, log.Status)
	assert.Equal(t, "Acme Supply", log.SupplierName)
	require.NotNil(t, log.FinishedAt)
}

func TestRunIsIdempotentAgainstUnchangedFeed(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeProvider{items: map[string]models.SupplierInventoryData{
		"A": item("A", 10, 9.99),
		"B": item("B", 20, 5.00),
	}}
	orch := newTestOrchestrator(mem, provider)
	ctx := context.Background()

	// First run: snapshots established, no changes.
	res1, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
	require.NoError(t, err)
	assert.Equal(t, 0, res1.ChangesDetected)

	// Feed moves: one change.
	provider.items["A"] = item("A", 7, 9.99)
	res2, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, res2.ChangesDetected)

	// Same feed again: diff against the now-current snapshot is empty.
	res3, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
	require.NoError(t, err)
	assert.Equal(t, 0, res3.ChangesDetected)
	assert.Equal(t, 2, res3.VariantsSynced)
}

func TestRunRejectsConcurrentRunForSameSupplier(t *testing.T) {
	mem := store.NewMemory()
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	orch := newTestOrchestrator(mem, provider)
	ctx := context.Background()

	type outcome struct {
		res *models.SyncResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
		first <- outcome{res, err}
	}()

	<-provider.started

	// Second run while the first is parked inside the fetch.
	res, err := orch.Run(ctx, "sup-1", models.SyncSourceManual)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrConcurrentSync)

	// The rejection created no log row: only the in-flight run exists.
	logs, lerr := mem.GetSyncLogsBySupplier(ctx, "sup-1", 10)
	require.NoError(t, lerr)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SyncStatusRunning, logs[0].Status)

	close(provider.release)
	out := <-first
	require.NoError(t, out.err)
	assert.Equal(t, models.SyncStatusCompleted, out.res.Status)

	// Once released, a new run is accepted again.
	_, err = orch.Run(ctx, "sup-1", models.SyncSourceManual)
	require.NoError(t, err)
}

func TestRunDifferentSuppliersDoNotBlockEachOther(t *testing.T) {
	mem := store.NewMemory()
	blocking := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	provider := &routingProvider{
		slowSupplier: "sup-1",
		slow:         blocking,
		fast:         &fakeProvider{items: map[string]models.SupplierInventoryData{}},
	}
	orch := newTestOrchestrator(mem, provider)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
		done <- err
	}()
	<-blocking.started

	// sup-2 completes while sup-1 is still parked in its fetch.
	res, err := orch.Run(ctx, "sup-2", models.SyncSourceScheduled)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, res.Status)

	close(blocking.release)
	require.NoError(t, <-done)
}

type routingProvider struct {
	slowSupplier string
	slow         *blockingProvider
	fast         *fakeProvider
}

func (p *routingProvider) FetchInventory(ctx context.Context, supplierID string) (*BulkInventoryResult, error) {
	if supplierID == p.slowSupplier {
		return p.slow.FetchInventory(ctx, supplierID)
	}
	return p.fast.FetchInventory(ctx, supplierID)
}

func TestRunAccumulatesPartialFailures(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// Seed snapshots so both SKUs produce a quantity change.
	for _, sku := range []string{"X", "Y"} {
		require.NoError(t, mem.PutSnapshot(ctx, &models.SupplierInventoryRecord{
			SupplierID: "sup-1", SKU: sku, VariantID: "var-" + sku,
			Quantity: 10, Price: 1.00, IsAvailable: true,
		}))
	}

	flaky := &flakyStore{Memory: mem, failSKU: "X"}
	provider := &fakeProvider{items: map[string]models.SupplierInventoryData{
		"X": item("X", 8, 1.00),
		"Y": item("Y", 9, 1.00),
	}}
	orch := newTestOrchestrator(flaky, provider)

	res, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
	require.NoError(t, err, "per-SKU failures must not fail the run")

	assert.Equal(t, models.SyncStatusCompleted, res.Status)
	assert.Equal(t, 2, res.VariantsSynced)
	assert.Equal(t, 1, res.ChangesDetected, "only Y's change persisted")
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "sku X")

	// X's snapshot was not advanced, so the next run re-diffs against it.
	recX, err := mem.GetSnapshot(ctx, "sup-1", "X")
	require.NoError(t, err)
	assert.Equal(t, 10, recX.Quantity)

	recY, err := mem.GetSnapshot(ctx, "sup-1", "Y")
	require.NoError(t, err)
	assert.Equal(t, 9, recY.Quantity)
}

func TestRunFailsWhenFetchFails(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeProvider{err: errors.New("connection refused")}
	orch := newTestOrchestrator(mem, provider)
	ctx := context.Background()

	res, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFetch)

	require.NotNil(t, res)
	assert.Equal(t, models.SyncStatusFailed, res.Status)
	assert.Equal(t, 0, res.VariantsSynced)
	assert.Equal(t, 0, res.ChangesDetected)

	log, lerr := mem.GetSyncLogByID(ctx, res.LogID)
	require.NoError(t, lerr)
	assert.Equal(t, models.SyncStatusFailed, log.Status)
	require.NotEmpty(t, log.Errors)
	assert.Contains(t, log.Errors[0], "connection refused")

	// No snapshot or change writes happened.
	snaps, serr := mem.GetSnapshotsBySupplier(ctx, "sup-1")
	require.NoError(t, serr)
	assert.Empty(t, snaps)
	changes, cerr := mem.GetUnnotifiedChanges(ctx, 10)
	require.NoError(t, cerr)
	assert.Empty(t, changes)
}

func TestRunFailsOnEmptyFeedAfterNonEmptyRun(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeProvider{items: map[string]models.SupplierInventoryData{"A": item("A", 1, 2.00)}}
	orch := newTestOrchestrator(mem, provider)
	ctx := context.Background()

	_, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
	require.NoError(t, err)

	// Feed suddenly empty: treated as a broken feed, not mass removal.
	provider.items = map[string]models.SupplierInventoryData{}
	res, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFetch)
	assert.Equal(t, models.SyncStatusFailed, res.Status)

	// The previously established snapshot is untouched.
	rec, serr := mem.GetSnapshot(ctx, "sup-1", "A")
	require.NoError(t, serr)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Quantity)
}

func TestRunEmptyFeedOnFirstRunCompletes(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeProvider{items: map[string]models.SupplierInventoryData{}}
	orch := newTestOrchestrator(mem, provider)

	res, err := orch.Run(context.Background(), "sup-1", models.SyncSourceScheduled)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, res.Status)
	assert.Equal(t, 0, res.VariantsSynced)
}

func TestRunCancelledBetweenSKUsFinalizesFailed(t *testing.T) {
	mem := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	provider := &fakeProvider{
		items: map[string]models.SupplierInventoryData{
			"A": item("A", 1, 1.00),
			"B": item("B", 2, 2.00),
		},
		// Cancel during the fetch so the per-SKU loop sees a dead context.
		onFetch: func(context.Context) { cancel() },
	}
	orch := newTestOrchestrator(mem, provider)

	res, err := orch.Run(ctx, "sup-1", models.SyncSourceScheduled)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, res)
	assert.Equal(t, models.SyncStatusFailed, res.Status)

	// The log row is finalized despite the dead request context.
	log, lerr := mem.GetSyncLogByID(context.Background(), res.LogID)
	require.NoError(t, lerr)
	assert.Equal(t, models.SyncStatusFailed, log.Status)
	require.NotNil(t, log.FinishedAt)
	require.NotEmpty(t, log.Errors)
	assert.Contains(t, log.Errors[0], "cancelled")
}

func TestRunScenarioQuantityDropToZero(t *testing.T) {
	// old={quantity:10, price:9.99, leadTime:3} then feed reports quantity 0:
	// exactly a quantity change and a status change are recorded.
	mem := store.NewMemory()
	ctx := context.Background()
	lead := 3

	require.NoError(t, mem.PutSnapshot(ctx, &models.SupplierInventoryRecord{
		SupplierID: "sup-1", SKU: "ABC123", VariantID: "var-ABC123",
		Quantity: 10, Price: 9.99, LeadTimeDays: &lead, IsAvailable: true,
	}))

	data := item("ABC123", 0, 9.99)
	data.LeadTimeDays = &lead
	provider := &fakeProvider{items: map[string]models.SupplierInventoryData{"ABC123": data}}
	orch := newTestOrchestrator(mem, provider)

	res, err := orch.Run(ctx, "sup-1", models.SyncSourceWebhook)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChangesDetected)

	changes, cerr := mem.GetChangesByRunID(ctx, res.LogID)
	require.NoError(t, cerr)
	require.Len(t, changes, 2)

	byType := map[string]models.InventoryChange{}
	for _, c := range changes {
		assert.Equal(t, res.LogID, c.RunID)
		assert.False(t, c.Notified)
		byType[c.ChangeType] = c
	}
	assert.Equal(t, "10", byType[models.ChangeTypeQuantity].OldValue)
	assert.Equal(t, "0", byType[models.ChangeTypeQuantity].NewValue)
	assert.Equal(t, models.StockStatusInStock, byType[models.ChangeTypeStatus].OldValue)
	assert.Equal(t, models.StockStatusOutOfStock, byType[models.ChangeTypeStatus].NewValue)
}

func TestRunUsesDistributedLockWhenConfigured(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeProvider{items: map[string]models.SupplierInventoryData{}}

	locker := &fakeLocker{held: map[string]bool{"sup-1": true}}
	orch := NewOrchestrator(mem, detector.New(detector.Config{}), provider, nil, locker)

	_, err := orch.Run(context.Background(), "sup-1", models.SyncSourceScheduled)
	assert.ErrorIs(t, err, ErrConcurrentSync)

	// A lock held for another supplier does not interfere.
	res, err := orch.Run(context.Background(), "sup-2", models.SyncSourceScheduled)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, res.Status)
	assert.False(t, locker.held["sup-2"], "lock released after the run")
}

type fakeLocker struct {
	held map[string]bool
}

func (l *fakeLocker) Acquire(_ context.Context, supplierID string) (bool, error) {
	if l.held[supplierID] {
		return false, nil
	}
	l.held[supplierID] = true
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, supplierID string) error {
	if !l.held[supplierID] {
		return fmt.Errorf("lock not held: %s", supplierID)
	}
	delete(l.held, supplierID)
	return nil
}
