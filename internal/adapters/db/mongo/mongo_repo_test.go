package mongo

import (
	"context"
	"testing"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const ns = "social.users"

func userBSON(id uuid.UUID, verify model.VerifyStatus, pending bson.D) bson.D {
	d := bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "email", Value: "a@x.com"},
		{Key: "password", Value: "digest"},
		{Key: "name", Value: "Alice"},
		{Key: "verify", Value: int(verify)},
		{Key: "created_at", Value: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	if pending != nil {
		d = append(d, bson.E{Key: "email_verify_token", Value: pending})
	}
	return d
}

func TestMongoUserRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewMongoUserRepo(mt.DB)

		u := model.User{ID: uuid.New(), Email: "a@x.com"}
		id, err := repo.CreateUser(ctx, u)
		require.NoError(mt, err)
		require.Equal(mt, u.ID, id)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))
		repo := NewMongoUserRepo(mt.DB)

		_, err := repo.CreateUser(ctx, model.User{ID: uuid.New(), Email: "a@x.com"})
		require.True(mt, customErrors.IsAlreadyExists(err))
	})

	mt.Run("get by id", func(mt *mtest.T) {
		id := uuid.New()
		pending := bson.D{{Key: "value", Value: "tok"}, {Key: "issued_at", Value: time.Now()}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, userBSON(id, model.Unverified, pending)))
		repo := NewMongoUserRepo(mt.DB)

		got, err := repo.GetUserByID(ctx, id)
		require.NoError(mt, err)
		require.Equal(mt, id, got.ID)
		require.Equal(mt, "digest", got.PasswordDigest)
		require.True(mt, got.EmailVerifyToken.Matches("tok"))
		require.Equal(mt, model.PurposeEmailVerify, got.EmailVerifyToken.Purpose)
		require.Nil(mt, got.ForgotPasswordToken)
	})

	mt.Run("get by credentials miss", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		repo := NewMongoUserRepo(mt.DB)

		_, err := repo.GetUserByCredentials(ctx, "a@x.com", "bad")
		require.True(mt, customErrors.IsNotFound(err))
	})

	mt.Run("get by email", func(mt *mtest.T) {
		id := uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, userBSON(id, model.Verified, nil)))
		repo := NewMongoUserRepo(mt.DB)

		got, err := repo.GetUserByEmail(ctx, "a@x.com")
		require.NoError(mt, err)
		require.Equal(mt, model.Verified, got.Verify)
		require.Nil(mt, got.EmailVerifyToken)
	})

	mt.Run("set pending token", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)
		repo := NewMongoUserRepo(mt.DB)
		tok := model.PendingToken{Purpose: model.PurposeForgotPassword, Value: "f", IssuedAt: time.Now()}

		require.NoError(mt, repo.SetPendingToken(ctx, uuid.New(), tok, time.Now()))
		require.True(mt, customErrors.IsNotFound(repo.SetPendingToken(ctx, uuid.New(), tok, time.Now())))

		tok.Purpose = model.PurposeAccess
		require.True(mt, customErrors.IsInvalidArgument(repo.SetPendingToken(ctx, uuid.New(), tok, time.Now())))
	})

	mt.Run("consume pending token", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)
		repo := NewMongoUserRepo(mt.DB)
		verified := model.Verified
		upd := model.UserUpdate{Verify: &verified, UpdatedAt: time.Now()}
		id := uuid.New()

		require.NoError(mt, repo.ConsumePendingToken(ctx, id, model.PurposeEmailVerify, "tok", upd))
		err := repo.ConsumePendingToken(ctx, id, model.PurposeEmailVerify, "tok", upd)
		require.True(mt, customErrors.IsNotFound(err))

		err = repo.ConsumePendingToken(ctx, id, model.PurposeEmailVerify, "", upd)
		require.True(mt, customErrors.IsNotFound(err))
	})
}

func TestMongoTokenRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("store", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewMongoTokenRepo(mt.DB)

		err := repo.Store(ctx, model.RefreshToken{Token: "t", UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)})
		require.NoError(mt, err)
	})

	mt.Run("exists", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "social.refresh_tokens", mtest.FirstBatch, bson.D{{Key: "_id", Value: "t"}}),
			mtest.CreateCursorResponse(0, "social.refresh_tokens", mtest.FirstBatch),
		)
		repo := NewMongoTokenRepo(mt.DB)

		ok, err := repo.Exists(ctx, "t")
		require.NoError(mt, err)
		require.True(mt, ok)

		ok, err = repo.Exists(ctx, "missing")
		require.NoError(mt, err)
		require.False(mt, ok)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
		)
		repo := NewMongoTokenRepo(mt.DB)

		require.NoError(mt, repo.Delete(ctx, "t"))
		require.NoError(mt, repo.Delete(ctx, "t"))
		require.NoError(mt, repo.DeleteByUser(ctx, uuid.New()))
	})

	mt.Run("delete expired", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}))
		repo := NewMongoTokenRepo(mt.DB)

		n, err := repo.DeleteExpired(ctx, time.Now())
		require.NoError(mt, err)
		require.EqualValues(mt, 2, n)
	})

	mt.Run("delete error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "boom"}))
		repo := NewMongoTokenRepo(mt.DB)

		require.True(mt, customErrors.IsInternal(repo.DeleteByUser(ctx, uuid.New())))
	})
}
