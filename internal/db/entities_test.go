package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolog/macrolog/internal/models"
)

func testFoodItem(id string) *models.FoodItem {
	f := &models.FoodItem{
		ID:       id,
		Name:     "oatmeal",
		Calories: 150,
		ProteinG: 5,
	}
	f.Touch()
	return f
}

func TestSaveEntity_InsertAndUpdate(t *testing.T) {
	db := testDB(t)

	item := testFoodItem("f1")
	require.NoError(t, db.SaveEntity(item))

	item.Name = "steel-cut oatmeal"
	require.NoError(t, db.SaveEntity(item))

	got, err := db.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, "steel-cut oatmeal", got.(*models.FoodItem).Name)

	n, err := db.CountEntities(models.EntityFoodItem)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "upsert must not duplicate rows")
}

func TestSaveEntity_RejectsEmptyID(t *testing.T) {
	db := testDB(t)
	assert.Error(t, db.SaveEntity(&models.FoodItem{}))
}

func TestFetchEntity_NotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.FetchEntity(models.EntityFoodItem, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchUnowned(t *testing.T) {
	db := testDB(t)

	unowned := testFoodItem("f1")
	require.NoError(t, db.SaveEntity(unowned))

	owned := testFoodItem("f2")
	owned.SetOwner("user-1")
	require.NoError(t, db.SaveEntity(owned))

	got, err := db.FetchUnowned(models.EntityFoodItem)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].EntityID())
}

func TestFetchAll_OwnerFilter(t *testing.T) {
	db := testDB(t)

	a := testFoodItem("f1")
	a.SetOwner("user-1")
	require.NoError(t, db.SaveEntity(a))

	b := testFoodItem("f2")
	b.SetOwner("user-2")
	require.NoError(t, db.SaveEntity(b))

	owner := "user-1"
	got, err := db.FetchAll(models.EntityFoodItem, &owner)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].EntityID())

	all, err := db.FetchAll(models.EntityFoodItem, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFetchSyncedOlderThan_OnlySyncedQualify(t *testing.T) {
	db := testDB(t)
	old := time.Now().UTC().Add(-48 * time.Hour)

	oldSynced := testFoodItem("f1")
	oldSynced.SetStatus(models.SyncSynced)
	oldSynced.ModifiedAt = old
	require.NoError(t, db.SaveEntity(oldSynced))

	oldPending := testFoodItem("f2")
	oldPending.SetStatus(models.SyncPending)
	oldPending.ModifiedAt = old
	require.NoError(t, db.SaveEntity(oldPending))

	freshSynced := testFoodItem("f3")
	freshSynced.SetStatus(models.SyncSynced)
	require.NoError(t, db.SaveEntity(freshSynced))

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	got, err := db.FetchSyncedOlderThan(models.EntityFoodItem, cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].EntityID())
}

func TestAssignOwner(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.SaveEntity(testFoodItem("f1")))
	require.NoError(t, db.AssignOwner(models.EntityFoodItem, "f1", "user-1", models.SyncSynced))

	got, err := db.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	require.NotNil(t, got.Owner())
	assert.Equal(t, "user-1", *got.Owner())
	assert.Equal(t, models.SyncSynced, got.Status())
}

func TestResetSyncStatus_PreservesDataAndOwnership(t *testing.T) {
	db := testDB(t)

	item := testFoodItem("f1")
	item.SetOwner("user-1")
	item.SetStatus(models.SyncSynced)
	require.NoError(t, db.SaveEntity(item))

	dayLog := &models.DailyLog{ID: "d1", Date: "2026-08-25"}
	dayLog.SetStatus(models.SyncPending)
	dayLog.Touch()
	require.NoError(t, db.SaveEntity(dayLog))

	require.NoError(t, db.ResetSyncStatus())

	gotItem, err := db.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncUnsynced, gotItem.Status())
	require.NotNil(t, gotItem.Owner(), "reset must not strip ownership")
	assert.Equal(t, "oatmeal", gotItem.(*models.FoodItem).Name)

	gotLog, err := db.FetchEntity(models.EntityDailyLog, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncUnsynced, gotLog.Status())
}

func TestDeleteEntity_Idempotent(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.SaveEntity(testFoodItem("f1")))
	require.NoError(t, db.DeleteEntity(models.EntityFoodItem, "f1"))
	require.NoError(t, db.DeleteEntity(models.EntityFoodItem, "f1"))

	_, err := db.FetchEntity(models.EntityFoodItem, "f1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchDailyLogByDate(t *testing.T) {
	db := testDB(t)

	dayLog := &models.DailyLog{ID: "d1", Date: "2026-08-25"}
	dayLog.Touch()
	require.NoError(t, db.SaveEntity(dayLog))

	got, err := db.FetchDailyLogByDate("2026-08-25")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.ID)

	_, err = db.FetchDailyLogByDate("2026-08-24")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndEnqueue_Atomic(t *testing.T) {
	db := testDB(t)

	item := testFoodItem("f1")
	require.NoError(t, db.SaveAndEnqueue(item, models.OpCreate))

	got, err := db.FetchEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, got.Status())

	op, err := db.OpForEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.OpCreate, op.Kind)
	assert.NotEmpty(t, op.Payload)
}

func TestSaveAndEnqueue_SecondWriteCoalesces(t *testing.T) {
	db := testDB(t)

	item := testFoodItem("f1")
	require.NoError(t, db.SaveAndEnqueue(item, models.OpCreate))

	item.Calories = 200
	require.NoError(t, db.SaveAndEnqueue(item, models.OpUpdate))

	depth, err := db.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	op, err := db.OpForEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.OpUpdate, op.Kind)
}

func TestDeleteAndEnqueue(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.SaveEntity(testFoodItem("f1")))
	require.NoError(t, db.DeleteAndEnqueue(models.EntityFoodItem, "f1"))

	_, err := db.FetchEntity(models.EntityFoodItem, "f1")
	assert.ErrorIs(t, err, ErrNotFound)

	op, err := db.OpForEntity(models.EntityFoodItem, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.OpDelete, op.Kind)
}
