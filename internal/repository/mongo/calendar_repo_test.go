package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/repository"
)

const calendarsNS = "scan2cal.calendars"

func TestCalendarSaveDocs_PlainSave(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cal := &domain.Calendar{ID: "5", AccountID: "acc-1", Name: "Fall"}

	filter, update := calendarSaveDocs(cal, nil, now)

	assert.Equal(t, bson.M{"_id": "5", "accountId": "acc-1"}, filter)

	set := update["$set"].(bson.M)
	assert.Equal(t, "Fall", set["name"])
	assert.Equal(t, []domain.Event{}, set["events"], "nil events are stored as an empty array")
	assert.Equal(t, now, set["updatedAt"])
	assert.Equal(t, bson.M{"version": 1}, update["$inc"])
	assert.Equal(t, bson.M{"createdAt": now}, update["$setOnInsert"])
}

func TestCalendarSaveDocs_CompareAndSwap(t *testing.T) {
	v := int64(3)
	cal := &domain.Calendar{
		ID:        "5",
		AccountID: "acc-1",
		Name:      "Fall",
		Events:    []domain.Event{{Title: "C", Start: "2025-04-10", AllDay: true}},
	}

	filter, update := calendarSaveDocs(cal, &v, time.Now())

	assert.Equal(t, bson.M{"_id": "5", "accountId": "acc-1", "version": int64(3)}, filter)
	assert.Len(t, update["$set"].(bson.M)["events"], 1)
}

func TestOwnedBy(t *testing.T) {
	assert.Equal(t, bson.M{"_id": "c1", "accountId": "a1"}, ownedBy("c1", "a1"))
}

func duplicateKey() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    11000,
		Name:    "DuplicateKey",
		Message: "E11000 duplicate key error collection: scan2cal.calendars index: _id_",
	})
}

func noDocument() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
}

func countResponse(n int) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, calendarsNS, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, calendarsNS, mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func TestCalendarRepository_Save(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("replaces name and events", func(mt *mtest.T) {
		repo := NewMongoCalendarRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "5"},
			{Key: "accountId", Value: "acc-1"},
			{Key: "name", Value: "Fall"},
			{Key: "events", Value: bson.A{bson.D{{Key: "title", Value: "C"}, {Key: "start", Value: "2025-04-10"}, {Key: "allDay", Value: true}}}},
			{Key: "version", Value: int64(2)},
		}}))

		saved, err := repo.Save(context.Background(), &domain.Calendar{
			ID: "5", AccountID: "acc-1", Name: "Fall",
			Events: []domain.Event{{Title: "C", Start: "2025-04-10", AllDay: true}},
		}, nil)
		require.NoError(mt, err)
		assert.Equal(mt, "5", saved.ID)
		assert.Equal(mt, int64(2), saved.Version)
		require.Len(mt, saved.Events, 1)
		assert.Equal(mt, "C", saved.Events[0].Title)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, "acc-1", cmd.Lookup("query", "accountId").StringValue())
		upsert, _ := cmd.Lookup("upsert").BooleanOK()
		assert.True(mt, upsert, "plain saves upsert")
	})

	mt.Run("id owned by another account is not found", func(mt *mtest.T) {
		repo := NewMongoCalendarRepository(mt.DB)
		mt.AddMockResponses(duplicateKey())

		_, err := repo.Save(context.Background(), &domain.Calendar{ID: "5", AccountID: "acc-2", Name: "Mine now"}, nil)
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("stale version is a conflict", func(mt *mtest.T) {
		repo := NewMongoCalendarRepository(mt.DB)
		mt.AddMockResponses(noDocument(), countResponse(1))

		v := int64(3)
		_, err := repo.Save(context.Background(), &domain.Calendar{ID: "5", AccountID: "acc-1", Name: "Fall"}, &v)
		assert.ErrorIs(mt, err, repository.ErrConflict)

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 2)
		assert.Equal(mt, "findAndModify", started[0].CommandName)
		assert.Equal(mt, int64(3), started[0].Command.Lookup("query", "version").Int64())
		upsert, _ := started[0].Command.Lookup("upsert").BooleanOK()
		assert.False(mt, upsert, "compare-and-swap never inserts")
		assert.Equal(mt, "aggregate", started[1].CommandName)
	})

	mt.Run("versioned save of a missing calendar is not found", func(mt *mtest.T) {
		repo := NewMongoCalendarRepository(mt.DB)
		mt.AddMockResponses(noDocument(), countResponse(0))

		v := int64(1)
		_, err := repo.Save(context.Background(), &domain.Calendar{ID: "404", AccountID: "acc-1", Name: "Fall"}, &v)
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}

func TestCalendarRepository_DeleteForAccount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns the deleted identity", func(mt *mtest.T) {
		repo := NewMongoCalendarRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "5"},
			{Key: "accountId", Value: "acc-1"},
			{Key: "name", Value: "Fall"},
		}}))

		deleted, err := repo.DeleteForAccount(context.Background(), "5", "acc-1")
		require.NoError(mt, err)
		assert.Equal(mt, "5", deleted.ID)
		assert.Equal(mt, "Fall", deleted.Name)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, "5", cmd.Lookup("query", "_id").StringValue())
		assert.Equal(mt, "acc-1", cmd.Lookup("query", "accountId").StringValue())
	})

	mt.Run("not owned is the same as missing", func(mt *mtest.T) {
		repo := NewMongoCalendarRepository(mt.DB)
		mt.AddMockResponses(noDocument(), noDocument())

		_, errForeign := repo.DeleteForAccount(context.Background(), "5", "acc-2")
		_, errMissing := repo.DeleteForAccount(context.Background(), "nope", "acc-1")
		assert.ErrorIs(mt, errForeign, repository.ErrNotFound)
		assert.Equal(mt, errMissing, errForeign)
	})
}

func TestCalendarRepository_GetByIDForAccount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("not owned is not found", func(mt *mtest.T) {
		repo := NewMongoCalendarRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, calendarsNS, mtest.FirstBatch))

		_, err := repo.GetByIDForAccount(context.Background(), "5", "acc-2")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
		assert.Equal(mt, "acc-2", mt.GetStartedEvent().Command.Lookup("filter", "accountId").StringValue())
	})
}
