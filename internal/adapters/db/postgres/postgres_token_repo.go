package postgres

import (
	"context"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type refreshTokenRow struct {
	Token     string    `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt time.Time
	ExpiresAt *time.Time `gorm:"index"`
}

func (refreshTokenRow) TableName() string { return "refresh_tokens" }

type PostgresTokenRepo struct {
	db *gorm.DB
}

func NewPostgresTokenRepo(db *gorm.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

func (p *PostgresTokenRepo) Store(ctx context.Context, rt model.RefreshToken) error {
	row := refreshTokenRow{Token: rt.Token, UserID: rt.UserID, CreatedAt: rt.CreatedAt}
	if !rt.ExpiresAt.IsZero() {
		exp := rt.ExpiresAt
		row.ExpiresAt = &exp
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return customErrors.ErrAlreadyExists
		}
		return customErrors.WrapInternal(err, "StoreRefresh")
	}
	return nil
}

func (p *PostgresTokenRepo) Exists(ctx context.Context, token string) (bool, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&refreshTokenRow{}).Where("token = ?", token).Count(&n).Error
	if err != nil {
		return false, customErrors.WrapInternal(err, "ExistsRefresh")
	}
	return n > 0, nil
}

func (p *PostgresTokenRepo) Delete(ctx context.Context, token string) error {
	if err := p.db.WithContext(ctx).Where("token = ?", token).Delete(&refreshTokenRow{}).Error; err != nil {
		return customErrors.WrapInternal(err, "DeleteRefresh")
	}
	return nil
}

func (p *PostgresTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&refreshTokenRow{}).Error; err != nil {
		return customErrors.WrapInternal(err, "DeleteRefreshByUser")
	}
	return nil
}

func (p *PostgresTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := p.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&refreshTokenRow{})
	if err := res.Error; err != nil {
		return 0, customErrors.WrapInternal(err, "DeleteExpiredRefresh")
	}
	return res.RowsAffected, nil
}
