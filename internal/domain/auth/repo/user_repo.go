package repo

import (
	"context"
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	// GetUserByCredentials looks a user up by email and password digest.
	GetUserByCredentials(ctx context.Context, email, digest string) (model.User, error)

	// SetPendingToken overwrites the slot named by token.Purpose.
	SetPendingToken(ctx context.Context, id uuid.UUID, token model.PendingToken, updatedAt time.Time) error

	// ConsumePendingToken clears the slot for purpose and applies upd, but only
	// while the slot still holds value. ErrNotFound when nothing matched.
	ConsumePendingToken(ctx context.Context, id uuid.UUID, purpose model.TokenPurpose, value string, upd model.UserUpdate) error
}
