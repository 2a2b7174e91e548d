package jwt

import (
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	jwt.RegisteredClaims
	UserID    string             `json:"user_id"`
	TokenType model.TokenPurpose `json:"token_type"`
}

// Codec signs and verifies purpose-bound tokens. Each purpose has its own
// secret and expiry.
type Codec interface {
	Sign(userID uuid.UUID, purpose model.TokenPurpose) (token string, exp time.Time, err error)
	Verify(token string, purpose model.TokenPurpose) (model.TokenPayload, error)
	TTL(purpose model.TokenPurpose) time.Duration
}
