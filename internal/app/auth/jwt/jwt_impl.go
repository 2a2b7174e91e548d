package jwt

import (
	"errors"
	"strings"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var signingMethod = jwt.SigningMethodHS256

// SignToken signs claims with secret.
func SignToken(claims jwt2.Claims, secret string) (string, error) {
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(secret))
	if err != nil {
		return "", customErrors.WrapInternal(err, "sign token")
	}
	return signed, nil
}

// VerifyToken checks signature and registered claims of raw. Failures are
// *TokenError values carrying a humanized message.
func VerifyToken(raw, secret string, opts ...jwt.ParserOption) (*jwt2.Claims, error) {
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}, opts...)

	claims := &jwt2.Claims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, customErrors.NewTokenError(customErrors.ErrInvalidToken, "Token is invalid")
	}
	return claims, nil
}

// jwt sentinels from most to least specific; the first match names the failure.
var jwtReasons = []error{
	jwt.ErrTokenExpired,
	jwt.ErrTokenNotValidYet,
	jwt.ErrTokenUsedBeforeIssued,
	jwt.ErrTokenInvalidIssuer,
	jwt.ErrTokenInvalidAudience,
	jwt.ErrTokenRequiredClaimMissing,
	jwt.ErrTokenSignatureInvalid,
	jwt.ErrTokenMalformed,
	jwt.ErrTokenUnverifiable,
	jwt.ErrTokenInvalidClaims,
}

func classify(err error) error {
	kind := customErrors.ErrInvalidToken
	if errors.Is(err, jwt.ErrTokenExpired) {
		kind = customErrors.ErrTokenExpired
	}
	for _, reason := range jwtReasons {
		if errors.Is(err, reason) {
			return customErrors.NewTokenError(kind, humanize(reason.Error()))
		}
	}
	return customErrors.NewTokenError(kind, humanize(err.Error()))
}

func humanize(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// Codec binds SignToken/VerifyToken to the per-purpose secrets and expiries.
type Codec struct {
	tokens config.TokenConfig
	now    func() time.Time
}

var _ jwt2.Codec = (*Codec)(nil)

type Option func(*Codec)

// WithClock replaces time.Now for both signing and verification.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(cfg *config.Config, opts ...Option) *Codec {
	c := &Codec{tokens: cfg.Tokens, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Codec) TTL(purpose model.TokenPurpose) time.Duration {
	s, _ := c.tokens.For(purpose)
	return s.TTL
}

func (c *Codec) Sign(userID uuid.UUID, purpose model.TokenPurpose) (string, time.Time, error) {
	s, ok := c.tokens.For(purpose)
	if !ok {
		return "", time.Time{}, customErrors.NewInvalidArgument("unknown token purpose " + string(purpose))
	}

	now := c.now()
	claims := jwt2.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    c.tokens.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
			ID:        uuid.NewString(),
		},
		UserID:    userID.String(),
		TokenType: purpose,
	}
	if c.tokens.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.tokens.Audience}
	}

	signed, err := SignToken(claims, s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (c *Codec) Verify(raw string, purpose model.TokenPurpose) (model.TokenPayload, error) {
	s, ok := c.tokens.For(purpose)
	if !ok {
		return model.TokenPayload{}, customErrors.NewInvalidArgument("unknown token purpose " + string(purpose))
	}

	opts := []jwt.ParserOption{jwt.WithTimeFunc(c.now), jwt.WithLeeway(c.tokens.Leeway)}
	if c.tokens.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.tokens.Issuer))
	}
	if c.tokens.Audience != "" {
		opts = append(opts, jwt.WithAudience(c.tokens.Audience))
	}

	claims, err := VerifyToken(raw, s.Secret, opts...)
	if err != nil {
		return model.TokenPayload{}, err
	}
	if claims.TokenType != purpose {
		return model.TokenPayload{}, customErrors.NewTokenError(customErrors.ErrInvalidToken, "Token purpose mismatch")
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return model.TokenPayload{}, customErrors.NewTokenError(customErrors.ErrInvalidToken, "Token subject is malformed")
	}

	return model.TokenPayload{
		ID:        claims.ID,
		UserID:    uid,
		Purpose:   claims.TokenType,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
