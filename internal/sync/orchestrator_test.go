package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolog/macrolog/internal/db"
	"github.com/macrolog/macrolog/internal/models"
	"github.com/macrolog/macrolog/internal/remote"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()

	cfg := db.DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	// Long backoff keeps failed operations out of subsequent peeks, so
	// attempt counts stay deterministic.
	cfg.BackoffBase = time.Minute
	cfg.BackoffMax = time.Hour

	database, err := db.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// fakeRemote records writes and fails the entity ids it is told to.
type fakeRemote struct {
	mu       gosync.Mutex
	calls    int      // PutDocument attempts, failed ones included
	puts     []string // "type/id"
	payloads []string
	deletes  []string
	failIDs  map[string]error
	docs     map[models.EntityType][]remote.Document

	// onPut runs once, before the next PutDocument is recorded.
	onPut func()
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{failIDs: make(map[string]error)}
}

func (f *fakeRemote) failWith(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failIDs[id] = err
}

func (f *fakeRemote) PutDocument(ctx context.Context, userID string, t models.EntityType, id string, payload json.RawMessage) error {
	f.mu.Lock()
	hook := f.onPut
	f.onPut = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failIDs[id]; ok {
		return err
	}
	f.puts = append(f.puts, fmt.Sprintf("%s/%s", t, id))
	f.payloads = append(f.payloads, string(payload))
	return nil
}

func (f *fakeRemote) DeleteDocument(ctx context.Context, userID string, t models.EntityType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failIDs[id]; ok {
		return err
	}
	f.deletes = append(f.deletes, fmt.Sprintf("%s/%s", t, id))
	return nil
}

func (f *fakeRemote) ListCollection(ctx context.Context, userID string, t models.EntityType) ([]remote.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[t], nil
}

func (f *fakeRemote) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) clearFailure(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failIDs, id)
}

// blockingSource keeps the listener idle until its context is cancelled.
type blockingSource struct{}

func (blockingSource) Changes(ctx context.Context, userID, cursor string) (*remote.ChangePage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testOrchestrator(t *testing.T) (*Orchestrator, *db.DB, *fakeRemote) {
	t.Helper()
	database := testDB(t)
	rem := newFakeRemote()
	listener := remote.NewListener(blockingSource{})
	orch := New(database, rem, listener, Config{BatchSize: 10, OpTimeout: time.Second, PushInterval: time.Hour})
	t.Cleanup(orch.StopListening)
	return orch, database, rem
}

func saveOwnedItem(t *testing.T, database *db.DB, id string) *models.FoodItem {
	t.Helper()
	item := &models.FoodItem{ID: id, Name: "item-" + id, Calories: 100}
	item.SetOwner("user-1")
	require.NoError(t, database.SaveAndEnqueue(item, models.OpCreate))
	return item
}

func TestForceSyncNow_RequiresUser(t *testing.T) {
	orch, _, _ := testOrchestrator(t)
	assert.ErrorIs(t, orch.ForceSyncNow(context.Background()), ErrNotAuthenticated)
}

func TestForceSyncNow_PushesAndAcks(t *testing.T) {
	orch, database, rem := testOrchestrator(t)
	orch.SetUser("user-1")

	saveOwnedItem(t, database, "a")
	saveOwnedItem(t, database, "b")

	require.NoError(t, orch.ForceSyncNow(context.Background()))

	assert.Equal(t, []string{"food_items/a", "food_items/b"}, rem.puts, "FIFO order")

	depth, err := database.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	got, err := database.FetchEntity(models.EntityFoodItem, "a")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, got.Status())

	assert.Equal(t, StateListening, orch.State().State)
}

func TestForceSyncNow_PartialFailureReturnsQueueError(t *testing.T) {
	orch, database, rem := testOrchestrator(t)
	orch.SetUser("user-1")

	saveOwnedItem(t, database, "good")
	saveOwnedItem(t, database, "bad")
	rem.failWith("bad", &remote.StatusError{Code: 500})

	err := orch.ForceSyncNow(context.Background())

	var qerr *QueueError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 1, qerr.Remaining)

	// The good one is confirmed and gone; the bad one stays with a
	// recorded attempt.
	op, err2 := database.OpForEntity(models.EntityFoodItem, "bad")
	require.NoError(t, err2)
	assert.Equal(t, 1, op.AttemptCount)
	assert.NotEmpty(t, op.LastError)

	_, err2 = database.OpForEntity(models.EntityFoodItem, "good")
	assert.ErrorIs(t, err2, db.ErrNotFound)
}

func TestForceSyncNow_NetworkFailureSuspendsAndKeepsQueue(t *testing.T) {
	orch, database, rem := testOrchestrator(t)
	orch.SetUser("user-1")

	saveOwnedItem(t, database, "a")
	saveOwnedItem(t, database, "b")
	rem.failWith("a", fmt.Errorf("%w: connection refused", remote.ErrNetworkUnavailable))

	err := orch.ForceSyncNow(context.Background())
	assert.ErrorIs(t, err, ErrNetworkUnavailable)

	// Nothing was lost and nothing got a failure recorded; the whole
	// pass suspends on network trouble.
	depth, err2 := database.QueueDepth()
	require.NoError(t, err2)
	assert.Equal(t, 2, depth)

	op, err2 := database.OpForEntity(models.EntityFoodItem, "a")
	require.NoError(t, err2)
	assert.Equal(t, 0, op.AttemptCount)

	assert.Equal(t, StateOffline, orch.State().State)
}

func TestForceSyncNow_TimeoutIsPerOperationFailure(t *testing.T) {
	orch, database, rem := testOrchestrator(t)
	orch.SetUser("user-1")

	saveOwnedItem(t, database, "x")
	saveOwnedItem(t, database, "y")
	rem.failWith("y", fmt.Errorf("remote call timed out: %w", context.DeadlineExceeded))

	err := orch.ForceSyncNow(context.Background())

	// One stalled call fails that operation with backoff; the pass
	// finishes and reports what is left rather than suspending.
	var qerr *QueueError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 1, qerr.Remaining)

	_, err2 := database.OpForEntity(models.EntityFoodItem, "x")
	assert.ErrorIs(t, err2, db.ErrNotFound)

	op, err2 := database.OpForEntity(models.EntityFoodItem, "y")
	require.NoError(t, err2)
	assert.Equal(t, 1, op.AttemptCount)
	assert.NotEqual(t, StateOffline, orch.State().State)
}

func TestPushOne_CoalescedMidFlightIsNotDropped(t *testing.T) {
	orch, database, rem := testOrchestrator(t)
	orch.SetUser("user-1")

	item := &models.FoodItem{ID: "f1", Name: "first", Calories: 100}
	item.SetOwner("user-1")
	require.NoError(t, database.SaveAndEnqueue(item, models.OpCreate))

	// A concurrent local edit coalesces into the row while its old
	// payload is in flight.
	rem.onPut = func() {
		newer := &models.FoodItem{ID: "f1", Name: "second", Calories: 200}
		newer.SetOwner("user-1")
		require.NoError(t, database.SaveAndEnqueue(newer, models.OpUpdate))
	}

	require.NoError(t, orch.ForceSyncNow(context.Background()))

	require.Equal(t, 2, rem.putCount(), "the coalesced payload must be pushed, not dropped")
	assert.Contains(t, rem.payloads[1], "second")

	depth, err := database.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	got, err := database.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.(*models.FoodItem).Name)
	assert.Equal(t, models.SyncSynced, got.Status())
}

func TestPushOne_SkipsUnownedEntities(t *testing.T) {
	orch, database, rem := testOrchestrator(t)
	orch.SetUser("user-1")

	item := &models.FoodItem{ID: "pre-login", Name: "legacy"}
	require.NoError(t, database.SaveAndEnqueue(item, models.OpCreate))

	require.NoError(t, orch.ForceSyncNow(context.Background()))

	assert.Zero(t, rem.putCount(), "owner-less entities must never be pushed")

	depth, err := database.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestPushOne_DeleteOps(t *testing.T) {
	orch, database, rem := testOrchestrator(t)
	orch.SetUser("user-1")

	item := saveOwnedItem(t, database, "a")
	require.NoError(t, orch.ForceSyncNow(context.Background()))
	require.NoError(t, database.DeleteAndEnqueue(item.Type(), item.EntityID()))

	require.NoError(t, orch.ForceSyncNow(context.Background()))

	assert.Equal(t, []string{"food_items/a"}, rem.deletes)
}

func TestApplyDelta_RemoteNewerWins(t *testing.T) {
	orch, database, _ := testOrchestrator(t)

	local := &models.FoodItem{ID: "f1", Name: "old name", Calories: 100}
	local.SetOwner("user-1")
	local.ModifiedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, database.SaveEntity(local))
	_, err := database.EnqueueOp(models.EntityFoodItem, "f1", models.OpUpdate, nil)
	require.NoError(t, err)

	remoteItem := &models.FoodItem{ID: "f1", Name: "new name", Calories: 120}
	remoteItem.SetOwner("user-1")
	remoteItem.ModifiedAt = time.Now().UTC()
	payload, err := models.EncodeEntity(remoteItem)
	require.NoError(t, err)

	require.NoError(t, orch.applyDelta(remote.Delta{
		EntityType:      models.EntityFoodItem,
		EntityID:        "f1",
		Payload:         payload,
		RemoteTimestamp: remoteItem.ModifiedAt,
	}))

	got, err := database.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, "new name", got.(*models.FoodItem).Name)
	assert.Equal(t, models.SyncSynced, got.Status())

	// The superseded local mutation is discarded.
	_, err = database.OpForEntity(models.EntityFoodItem, "f1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestApplyDelta_LocalNewerKept(t *testing.T) {
	orch, database, _ := testOrchestrator(t)

	local := &models.FoodItem{ID: "f1", Name: "local edit"}
	local.ModifiedAt = time.Now().UTC()
	require.NoError(t, database.SaveEntity(local))
	_, err := database.EnqueueOp(models.EntityFoodItem, "f1", models.OpUpdate, nil)
	require.NoError(t, err)

	stale := &models.FoodItem{ID: "f1", Name: "stale remote"}
	payload, err := models.EncodeEntity(stale)
	require.NoError(t, err)

	require.NoError(t, orch.applyDelta(remote.Delta{
		EntityType:      models.EntityFoodItem,
		EntityID:        "f1",
		Payload:         payload,
		RemoteTimestamp: time.Now().UTC().Add(-time.Hour),
	}))

	got, err := database.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, "local edit", got.(*models.FoodItem).Name)

	// The pending push survives to overwrite the remote side.
	_, err = database.OpForEntity(models.EntityFoodItem, "f1")
	assert.NoError(t, err)
}

func TestApplyDelta_TieGoesToRemote(t *testing.T) {
	orch, database, _ := testOrchestrator(t)

	ts := time.Now().UTC().Truncate(time.Second)

	local := &models.FoodItem{ID: "f1", Name: "local"}
	local.ModifiedAt = ts
	require.NoError(t, database.SaveEntity(local))

	remoteItem := &models.FoodItem{ID: "f1", Name: "remote"}
	remoteItem.ModifiedAt = ts
	payload, err := models.EncodeEntity(remoteItem)
	require.NoError(t, err)

	require.NoError(t, orch.applyDelta(remote.Delta{
		EntityType:      models.EntityFoodItem,
		EntityID:        "f1",
		Payload:         payload,
		RemoteTimestamp: ts,
	}))

	got, err := database.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, "remote", got.(*models.FoodItem).Name)
}

func TestApplyDelta_Tombstone(t *testing.T) {
	orch, database, _ := testOrchestrator(t)

	local := &models.FoodItem{ID: "f1", Name: "doomed"}
	local.ModifiedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, database.SaveEntity(local))

	require.NoError(t, orch.applyDelta(remote.Delta{
		EntityType:      models.EntityFoodItem,
		EntityID:        "f1",
		RemoteTimestamp: time.Now().UTC(),
		Deleted:         true,
	}))

	_, err := database.FetchEntity(models.EntityFoodItem, "f1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDownloadAll_MergesSnapshot(t *testing.T) {
	orch, database, rem := testOrchestrator(t)
	orch.SetUser("user-1")

	doc := &models.FoodItem{ID: "f1", Name: "remote item", Calories: 80}
	doc.SetOwner("user-1")
	doc.ModifiedAt = time.Now().UTC()
	payload, err := models.EncodeEntity(doc)
	require.NoError(t, err)

	rem.docs = map[models.EntityType][]remote.Document{
		models.EntityFoodItem: {{EntityID: "f1", Payload: payload, UpdatedAt: doc.ModifiedAt}},
	}

	require.NoError(t, orch.DownloadAll(context.Background()))

	got, err := database.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, "remote item", got.(*models.FoodItem).Name)
	assert.Equal(t, models.SyncSynced, got.Status())

	lastSync, err := database.GetSyncMeta(models.SyncMetaLastFullSync)
	require.NoError(t, err)
	assert.NotEmpty(t, lastSync)
}

func TestSignOut_PreservesDataResetsBookkeeping(t *testing.T) {
	orch, database, _ := testOrchestrator(t)
	orch.SetUser("user-1")

	saveOwnedItem(t, database, "a")
	require.NoError(t, database.SetSyncMeta(models.SyncMetaLastFullSync, "2026-08-25T10:00:00Z"))

	require.NoError(t, orch.SignOut())

	got, err := database.FetchEntity(models.EntityFoodItem, "a")
	require.NoError(t, err, "sign-out must not delete local data")
	assert.Equal(t, models.SyncUnsynced, got.Status())

	depth, err := database.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	lastSync, err := database.GetSyncMeta(models.SyncMetaLastFullSync)
	require.NoError(t, err)
	assert.Empty(t, lastSync)

	assert.Equal(t, StateIdle, orch.State().State)

	// Forcing a sync after sign-out is rejected.
	assert.ErrorIs(t, orch.ForceSyncNow(context.Background()), ErrNotAuthenticated)
}

func TestSetOnline_OfflineBlocksForcedSync(t *testing.T) {
	orch, database, _ := testOrchestrator(t)
	orch.SetUser("user-1")
	saveOwnedItem(t, database, "a")

	orch.SetOnline(false)

	err := orch.ForceSyncNow(context.Background())
	assert.ErrorIs(t, err, ErrNetworkUnavailable)

	depth, err := database.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth, "offline queueing must preserve operations")
}

func TestPushLoop_AuthRejectionStopsAutomaticRetry(t *testing.T) {
	database := testDB(t)
	rem := newFakeRemote()
	listener := remote.NewListener(blockingSource{})
	orch := New(database, rem, listener, Config{BatchSize: 10, OpTimeout: time.Second, PushInterval: 5 * time.Millisecond})
	t.Cleanup(orch.StopListening)

	saveOwnedItem(t, database, "a")
	rem.failWith("a", fmt.Errorf("%w: token expired", remote.ErrNotAuthenticated))

	orch.StartListening(context.Background(), "user-1")

	require.Eventually(t, func() bool { return rem.callCount() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return orch.State().State == StateError }, time.Second, time.Millisecond)

	// The ticker keeps firing, but a rejected session must not be
	// retried automatically.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rem.callCount())

	depth, err := database.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth, "the operation stays queued for the next session")

	// A fresh identity lifts the gate and the queue drains.
	rem.clearFailure("a")
	orch.SetUser("user-1")
	require.Eventually(t, func() bool {
		n, qerr := database.QueueDepth()
		return qerr == nil && n == 0
	}, time.Second, time.Millisecond)
}

func TestStartStopListening_Idempotent(t *testing.T) {
	orch, _, _ := testOrchestrator(t)

	orch.StartListening(context.Background(), "user-1")
	orch.StartListening(context.Background(), "user-1")
	assert.True(t, orch.State().Listening)
	assert.Equal(t, StateListening, orch.State().State)

	orch.StopListening()
	orch.StopListening()
	assert.False(t, orch.State().Listening)
	assert.Equal(t, StateIdle, orch.State().State)
}

func TestSubscribe_DeliversCurrentAndUpdates(t *testing.T) {
	orch, _, _ := testOrchestrator(t)

	ch := orch.Subscribe()
	defer orch.Unsubscribe(ch)

	first := <-ch
	assert.Equal(t, StateIdle, first.State)

	orch.SetUser("user-1")
	orch.publishState(StateSyncing, "")

	got := <-ch
	assert.Equal(t, StateSyncing, got.State)
}

func TestQueueError_Message(t *testing.T) {
	err := &QueueError{Remaining: 3}
	assert.Equal(t, "queue processing failed: 3 operation(s) remaining", err.Error())
	assert.False(t, errors.Is(err, ErrNetworkUnavailable))
}
