package repo

import (
	"context"
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
)

// TokenRepo is the session store for issued refresh tokens.
type TokenRepo interface {
	Store(ctx context.Context, rt model.RefreshToken) error

	Exists(ctx context.Context, token string) (bool, error)

	// Delete removes a token by exact value. Missing tokens are not an error.
	Delete(ctx context.Context, token string) error

	DeleteByUser(ctx context.Context, userID uuid.UUID) error

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
