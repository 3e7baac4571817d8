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

const uploadCollectionName = "uploads"

// mongoUploadRepository implements repository.UploadRepository
type mongoUploadRepository struct {
	collection *mongo.Collection
}

// NewMongoUploadRepository creates a new Upload repository backed by MongoDB.
func NewMongoUploadRepository(db *mongo.Database) repository.UploadRepository {
	return &mongoUploadRepository{
		collection: db.Collection(uploadCollectionName),
	}
}

// Create inserts new upload metadata. Every call inserts a fresh row, even for
// a key that was confirmed before.
func (r *mongoUploadRepository) Create(ctx context.Context, upload *domain.Upload) (string, error) {
	if upload.AccountID == "" || upload.ObjectKey == "" || upload.CleanKey == "" {
		return "", errors.New("upload requires accountId, objectKey and cleanKey")
	}

	upload.ID = newID()
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, upload); err != nil {
		return "", err
	}
	return upload.ID, nil
}

// GetByIDForAccount has the owner in the filter, a foreign id is simply not found.
func (r *mongoUploadRepository) GetByIDForAccount(ctx context.Context, id, accountID string) (*domain.Upload, error) {
	var upload domain.Upload
	err := r.collection.FindOne(ctx, ownedBy(id, accountID)).Decode(&upload)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *mongoUploadRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Upload, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"accountId": accountID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	uploads := []domain.Upload{}
	if err = cursor.All(ctx, &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (r *mongoUploadRepository) DeleteForAccount(ctx context.Context, id, accountID string) error {
	result, err := r.collection.DeleteOne(ctx, ownedBy(id, accountID))
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUploadIndexes creates necessary indexes for the uploads collection.
func EnsureUploadIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// list view: an account's uploads, oldest first
			Keys: bson.D{{Key: "accountId", Value: 1}, {Key: "createdAt", Value: 1}},
		},
		{
			// not unique: confirming the same key twice yields two rows
			Keys: bson.D{{Key: "objectKey", Value: 1}},
		},
	})
	return err
}

// ownedBy is the lookup predicate shared by every per-account query.
func ownedBy(id, accountID string) bson.M {
	return bson.M{"_id": id, "accountId": accountID}
}
