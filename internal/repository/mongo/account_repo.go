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

const accountCollectionName = "accounts"

// mongoAccountRepository implements repository.AccountRepository.
type mongoAccountRepository struct {
	collection *mongo.Collection
}

func NewMongoAccountRepository(db *mongo.Database) repository.AccountRepository {
	return &mongoAccountRepository{
		collection: db.Collection(accountCollectionName),
	}
}

// UpsertBySubject creates the account on first sign-in and only refreshes the
// token fields afterwards. Identity fields are written once via $setOnInsert.
func (r *mongoAccountRepository) UpsertBySubject(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account.Subject == "" {
		return nil, errors.New("account subject is required")
	}

	now := time.Now().UTC()
	filter := bson.M{"subject": account.Subject}
	update := bson.M{
		"$set": bson.M{
			"accessToken":  account.AccessToken,
			"refreshToken": account.RefreshToken,
			"idToken":      account.IDToken,
			"tokenType":    account.TokenType,
			"scope":        account.Scope,
			"sessionState": account.SessionState,
			"expiresAt":    account.ExpiresAt,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"_id":       newID(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored domain.Account
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *mongoAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// EnsureAccountIndexes creates necessary indexes for the accounts collection.
func EnsureAccountIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject", Value: 1}},
			Options: options.Index().SetUnique(true), // one account per provider subject
		},
	})
	return err
}
