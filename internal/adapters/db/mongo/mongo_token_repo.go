package mongo

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const refreshTokensCollection = "refresh_tokens"

type refreshTokenDoc struct {
	Token     string     `bson:"_id"`
	UserID    string     `bson:"user_id"`
	CreatedAt time.Time  `bson:"created_at"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

type MongoTokenRepo struct {
	coll *mongo.Collection
}

func NewMongoTokenRepo(db *mongo.Database) *MongoTokenRepo {
	return &MongoTokenRepo{coll: db.Collection(refreshTokensCollection)}
}

func (r *MongoTokenRepo) Store(ctx context.Context, rt model.RefreshToken) error {
	d := refreshTokenDoc{Token: rt.Token, UserID: rt.UserID.String(), CreatedAt: rt.CreatedAt}
	if !rt.ExpiresAt.IsZero() {
		exp := rt.ExpiresAt
		d.ExpiresAt = &exp
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return customErrors.ErrAlreadyExists
		}
		return customErrors.WrapInternal(err, "StoreRefresh")
	}
	return nil
}

func (r *MongoTokenRepo) Exists(ctx context.Context, token string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"_id": token},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	case err != nil:
		return false, customErrors.WrapInternal(err, "ExistsRefresh")
	}
	return true, nil
}

func (r *MongoTokenRepo) Delete(ctx context.Context, token string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": token}); err != nil {
		return customErrors.WrapInternal(err, "DeleteRefresh")
	}
	return nil
}

func (r *MongoTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID.String()}); err != nil {
		return customErrors.WrapInternal(err, "DeleteRefreshByUser")
	}
	return nil
}

// DeleteExpired skips documents without expires_at; $lt never matches a missing field.
func (r *MongoTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, customErrors.WrapInternal(err, "DeleteExpiredRefresh")
	}
	return res.DeletedCount, nil
}
