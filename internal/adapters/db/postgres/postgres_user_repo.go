package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type userRow struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email                  string    `gorm:"uniqueIndex;not null"`
	PasswordDigest         string    `gorm:"not null"`
	Name                   string
	Verify                 int `gorm:"not null;default:0"`
	EmailVerifyToken       *string
	EmailVerifyIssuedAt    *time.Time
	ForgotPasswordToken    *string
	ForgotPasswordIssuedAt *time.Time
	Bio                    string
	Location               string
	Website                string
	Username               string
	Avatar                 string
	CoverPhoto             string
	DateOfBirth            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (userRow) TableName() string { return "users" }

// pendingColumns names the token and issued-at columns of a pending slot.
func pendingColumns(p model.TokenPurpose) (token, issuedAt string, err error) {
	switch p {
	case model.PurposeEmailVerify:
		return "email_verify_token", "email_verify_issued_at", nil
	case model.PurposeForgotPassword:
		return "forgot_password_token", "forgot_password_issued_at", nil
	}
	return "", "", customErrors.NewInvalidArgument(fmt.Sprintf("%s has no pending slot", p))
}

func toUserRow(u model.User) userRow {
	r := userRow{
		ID:             u.ID,
		Email:          u.Email,
		PasswordDigest: u.PasswordDigest,
		Name:           u.Name,
		Verify:         int(u.Verify),
		Bio:            u.Bio,
		Location:       u.Location,
		Website:        u.Website,
		Username:       u.Username,
		Avatar:         u.Avatar,
		CoverPhoto:     u.CoverPhoto,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if !u.DateOfBirth.IsZero() {
		dob := u.DateOfBirth
		r.DateOfBirth = &dob
	}
	if t := u.EmailVerifyToken; t != nil {
		r.EmailVerifyToken, r.EmailVerifyIssuedAt = &t.Value, &t.IssuedAt
	}
	if t := u.ForgotPasswordToken; t != nil {
		r.ForgotPasswordToken, r.ForgotPasswordIssuedAt = &t.Value, &t.IssuedAt
	}
	return r
}

func pendingFromRow(p model.TokenPurpose, value *string, issuedAt *time.Time) *model.PendingToken {
	if value == nil || *value == "" {
		return nil
	}
	t := &model.PendingToken{Purpose: p, Value: *value}
	if issuedAt != nil {
		t.IssuedAt = *issuedAt
	}
	return t
}

func (r userRow) toModel() model.User {
	u := model.User{
		ID:                  r.ID,
		Email:               r.Email,
		PasswordDigest:      r.PasswordDigest,
		Name:                r.Name,
		Verify:              model.VerifyStatus(r.Verify),
		EmailVerifyToken:    pendingFromRow(model.PurposeEmailVerify, r.EmailVerifyToken, r.EmailVerifyIssuedAt),
		ForgotPasswordToken: pendingFromRow(model.PurposeForgotPassword, r.ForgotPasswordToken, r.ForgotPasswordIssuedAt),
		Profile: model.Profile{
			Bio:        r.Bio,
			Location:   r.Location,
			Website:    r.Website,
			Username:   r.Username,
			Avatar:     r.Avatar,
			CoverPhoto: r.CoverPhoto,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.DateOfBirth != nil {
		u.DateOfBirth = *r.DateOfBirth
	}
	return u
}

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &pgErr) && pgErr.Code == "23505")
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	row := toUserRow(user)
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return uuid.Nil, customErrors.ErrAlreadyExists
		}
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}
	return row.ID, nil
}

func (p *PostgresUserRepo) first(ctx context.Context, op string, query string, args ...interface{}) (model.User, error) {
	var r userRow
	res := p.db.WithContext(ctx).Where(query, args...).First(&r)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, op)
	}
	return r.toModel(), nil
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return p.first(ctx, "GetUserByID", "id = ?", id)
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.first(ctx, "GetUserByEmail", "email = ?", email)
}

func (p *PostgresUserRepo) GetUserByCredentials(ctx context.Context, email, digest string) (model.User, error) {
	return p.first(ctx, "GetUserByCredentials", "email = ? AND password_digest = ?", email, digest)
}

func (p *PostgresUserRepo) SetPendingToken(ctx context.Context, id uuid.UUID, token model.PendingToken, updatedAt time.Time) error {
	tokenCol, issuedCol, err := pendingColumns(token.Purpose)
	if err != nil {
		return err
	}
	res := p.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		tokenCol:     token.Value,
		issuedCol:    token.IssuedAt,
		"updated_at": updatedAt,
	})
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "SetPendingToken")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}

// ConsumePendingToken is a single conditional UPDATE; two callers racing on the
// same value cannot both succeed.
func (p *PostgresUserRepo) ConsumePendingToken(ctx context.Context, id uuid.UUID, purpose model.TokenPurpose, value string, upd model.UserUpdate) error {
	tokenCol, issuedCol, err := pendingColumns(purpose)
	if err != nil {
		return err
	}
	if value == "" {
		return customErrors.ErrNotFound
	}

	set := map[string]interface{}{
		tokenCol:     nil,
		issuedCol:    nil,
		"updated_at": upd.UpdatedAt,
	}
	if upd.Verify != nil {
		set["verify"] = int(*upd.Verify)
	}
	if upd.PasswordDigest != nil {
		set["password_digest"] = *upd.PasswordDigest
	}

	res := p.db.WithContext(ctx).Model(&userRow{}).
		Where("id = ? AND "+tokenCol+" = ?", id, value).
		Updates(set)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "ConsumePendingToken")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}
