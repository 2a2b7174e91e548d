package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const usersCollection = "users"

type pendingDoc struct {
	Value    string    `bson:"value"`
	IssuedAt time.Time `bson:"issued_at"`
}

type userDoc struct {
	ID                  string      `bson:"_id"`
	Email               string      `bson:"email"`
	PasswordDigest      string      `bson:"password"`
	Name                string      `bson:"name"`
	Verify              int         `bson:"verify"`
	EmailVerifyToken    *pendingDoc `bson:"email_verify_token,omitempty"`
	ForgotPasswordToken *pendingDoc `bson:"forgot_password_token,omitempty"`
	Bio                 string      `bson:"bio"`
	Location            string      `bson:"location"`
	Website             string      `bson:"website"`
	Username            string      `bson:"username"`
	Avatar              string      `bson:"avatar"`
	CoverPhoto          string      `bson:"cover_photo"`
	DateOfBirth         time.Time   `bson:"date_of_birth"`
	CreatedAt           time.Time   `bson:"created_at"`
	UpdatedAt           time.Time   `bson:"updated_at"`
}

func pendingField(p model.TokenPurpose) (string, error) {
	switch p {
	case model.PurposeEmailVerify:
		return "email_verify_token", nil
	case model.PurposeForgotPassword:
		return "forgot_password_token", nil
	}
	return "", customErrors.NewInvalidArgument(fmt.Sprintf("%s has no pending slot", p))
}

func toPendingDoc(t *model.PendingToken) *pendingDoc {
	if t == nil {
		return nil
	}
	return &pendingDoc{Value: t.Value, IssuedAt: t.IssuedAt}
}

func (d *pendingDoc) toModel(p model.TokenPurpose) *model.PendingToken {
	if d == nil || d.Value == "" {
		return nil
	}
	return &model.PendingToken{Purpose: p, Value: d.Value, IssuedAt: d.IssuedAt}
}

func toUserDoc(u model.User) userDoc {
	return userDoc{
		ID:                  u.ID.String(),
		Email:               u.Email,
		PasswordDigest:      u.PasswordDigest,
		Name:                u.Name,
		Verify:              int(u.Verify),
		EmailVerifyToken:    toPendingDoc(u.EmailVerifyToken),
		ForgotPasswordToken: toPendingDoc(u.ForgotPasswordToken),
		Bio:                 u.Bio,
		Location:            u.Location,
		Website:             u.Website,
		Username:            u.Username,
		Avatar:              u.Avatar,
		CoverPhoto:          u.CoverPhoto,
		DateOfBirth:         u.DateOfBirth,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (d userDoc) toModel() (model.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		ID:                  id,
		Email:               d.Email,
		PasswordDigest:      d.PasswordDigest,
		Name:                d.Name,
		Verify:              model.VerifyStatus(d.Verify),
		EmailVerifyToken:    d.EmailVerifyToken.toModel(model.PurposeEmailVerify),
		ForgotPasswordToken: d.ForgotPasswordToken.toModel(model.PurposeForgotPassword),
		Profile: model.Profile{
			Bio:         d.Bio,
			Location:    d.Location,
			Website:     d.Website,
			Username:    d.Username,
			Avatar:      d.Avatar,
			CoverPhoto:  d.CoverPhoto,
			DateOfBirth: d.DateOfBirth,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type MongoUserRepo struct {
	coll *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(usersCollection)}
}

func (r *MongoUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	if _, err := r.coll.InsertOne(ctx, toUserDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return uuid.Nil, customErrors.ErrAlreadyExists
		}
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}
	return user.ID, nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, op string, filter bson.M) (model.User, error) {
	var d userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&d)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.User{}, customErrors.ErrNotFound
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, op)
	}
	u, err := d.toModel()
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, op)
	}
	return u, nil
}

func (r *MongoUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.findOne(ctx, "GetUserByID", bson.M{"_id": id.String()})
}

func (r *MongoUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, "GetUserByEmail", bson.M{"email": email})
}

func (r *MongoUserRepo) GetUserByCredentials(ctx context.Context, email, digest string) (model.User, error) {
	return r.findOne(ctx, "GetUserByCredentials", bson.M{"email": email, "password": digest})
}

func (r *MongoUserRepo) SetPendingToken(ctx context.Context, id uuid.UUID, token model.PendingToken, updatedAt time.Time) error {
	field, err := pendingField(token.Purpose)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$set": bson.M{
			field:        pendingDoc{Value: token.Value, IssuedAt: token.IssuedAt},
			"updated_at": updatedAt,
		},
	})
	if err != nil {
		return customErrors.WrapInternal(err, "SetPendingToken")
	}
	if res.MatchedCount == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}

// ConsumePendingToken matches on the stored value in the update filter, so the
// slot is cleared at most once per value.
func (r *MongoUserRepo) ConsumePendingToken(ctx context.Context, id uuid.UUID, purpose model.TokenPurpose, value string, upd model.UserUpdate) error {
	field, err := pendingField(purpose)
	if err != nil {
		return err
	}
	if value == "" {
		return customErrors.ErrNotFound
	}

	set := bson.M{"updated_at": upd.UpdatedAt}
	if upd.Verify != nil {
		set["verify"] = int(*upd.Verify)
	}
	if upd.PasswordDigest != nil {
		set["password"] = *upd.PasswordDigest
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), field + ".value": value},
		bson.M{"$set": set, "$unset": bson.M{field: ""}},
	)
	if err != nil {
		return customErrors.WrapInternal(err, "ConsumePendingToken")
	}
	if res.MatchedCount == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}
