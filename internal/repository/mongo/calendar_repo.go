package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/repository"
)

const calendarCollectionName = "calendars"

// mongoCalendarRepository implements repository.CalendarRepository.
// Events are embedded in the calendar document and always written as a whole.
type mongoCalendarRepository struct {
	collection *mongo.Collection
}

func NewMongoCalendarRepository(db *mongo.Database) repository.CalendarRepository {
	return &mongoCalendarRepository{
		collection: db.Collection(calendarCollectionName),
	}
}

func (r *mongoCalendarRepository) Create(ctx context.Context, calendar *domain.Calendar) (string, error) {
	if calendar.AccountID == "" {
		return "", errors.New("calendar requires accountId")
	}
	if calendar.ID == "" {
		calendar.ID = newID()
	}
	if calendar.Events == nil {
		calendar.Events = []domain.Event{}
	}
	now := time.Now().UTC()
	calendar.CreatedAt = now
	calendar.UpdatedAt = now
	calendar.Version = 1

	if _, err := r.collection.InsertOne(ctx, calendar); err != nil {
		return "", err
	}
	return calendar.ID, nil
}

// ListByAccount projects the event count server side instead of shipping every event array.
func (r *mongoCalendarRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.CalendarSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"accountId": accountID}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		{{Key: "$project", Value: bson.M{
			"name":        1,
			"description": 1,
			"createdAt":   1,
			"eventCount":  bson.M{"$size": bson.M{"$ifNull": bson.A{"$events", bson.A{}}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := []domain.CalendarSummary{}
	if err = cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *mongoCalendarRepository) GetByIDForAccount(ctx context.Context, id, accountID string) (*domain.Calendar, error) {
	var calendar domain.Calendar
	err := r.collection.FindOne(ctx, ownedBy(id, accountID)).Decode(&calendar)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &calendar, nil
}

func (r *mongoCalendarRepository) Save(ctx context.Context, calendar *domain.Calendar, expectedVersion *int64) (*domain.Calendar, error) {
	now := time.Now().UTC()
	filter, update := calendarSaveDocs(calendar, expectedVersion, now)

	// Upserting is only allowed for plain saves; a compare-and-swap must hit an existing document.
	opts := options.FindOneAndUpdate().
		SetUpsert(expectedVersion == nil).
		SetReturnDocument(options.After)

	var saved domain.Calendar
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	switch {
	case err == nil:
		return &saved, nil
	case mongo.IsDuplicateKeyError(err):
		// The filter missed but the _id exists: it belongs to another account.
		return nil, repository.ErrNotFound
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, r.classifyMiss(ctx, calendar.ID, calendar.AccountID)
	default:
		return nil, err
	}
}

// classifyMiss tells a stale version apart from a calendar that is not there.
func (r *mongoCalendarRepository) classifyMiss(ctx context.Context, id, accountID string) error {
	n, err := r.collection.CountDocuments(ctx, ownedBy(id, accountID))
	if err != nil {
		return err
	}
	if n > 0 {
		return repository.ErrConflict
	}
	return repository.ErrNotFound
}

func (r *mongoCalendarRepository) DeleteForAccount(ctx context.Context, id, accountID string) (*domain.Calendar, error) {
	opts := options.FindOneAndDelete().SetProjection(bson.M{"name": 1, "accountId": 1})

	var deleted domain.Calendar
	err := r.collection.FindOneAndDelete(ctx, ownedBy(id, accountID), opts).Decode(&deleted)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &deleted, nil
}

// calendarSaveDocs builds the filter and update of a whole-array save.
// accountId is part of the filter so an upsert copies it into the new document.
func calendarSaveDocs(calendar *domain.Calendar, expectedVersion *int64, now time.Time) (bson.M, bson.M) {
	filter := ownedBy(calendar.ID, calendar.AccountID)
	if expectedVersion != nil {
		filter["version"] = *expectedVersion
	}

	events := calendar.Events
	if events == nil {
		events = []domain.Event{}
	}

	update := bson.M{
		"$set": bson.M{
			"name":      calendar.Name,
			"events":    events,
			"updatedAt": now,
		},
		"$inc":         bson.M{"version": 1},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	return filter, update
}

// EnsureCalendarIndexes creates necessary indexes for the calendars collection.
func EnsureCalendarIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "accountId", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	})
	return err
}
