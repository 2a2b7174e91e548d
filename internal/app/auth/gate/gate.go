// Package gate authenticates requests before they reach the auth service.
//
// The bearer gate accepts access tokens from the Authorization header. The
// purpose gates accept refresh, email-verify and forgot-password tokens and
// cross-check them against persisted state.
package gate

import (
	"context"
	"errors"
	"strings"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/hasher"
	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	repo "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/repo"
)

const bearerPrefix = "Bearer"

type Gate struct {
	codec  jwt.Codec
	users  repo.UserRepo
	tokens repo.TokenRepo
	hasher hasher.Hasher
}

func New(codec jwt.Codec, users repo.UserRepo, tokens repo.TokenRepo, h hasher.Hasher) *Gate {
	return &Gate{codec: codec, users: users, tokens: tokens, hasher: h}
}

// PendingCheck is the outcome of a single-use token gate.
type PendingCheck struct {
	Payload model.TokenPayload
	User    model.User
	// AlreadyVerified is set by the email-verify gate only; the token was not
	// compared in that case.
	AlreadyVerified bool
}

// Authenticate verifies the access token carried by an Authorization header.
func (g *Gate) Authenticate(header string) (model.TokenPayload, error) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if scheme == "" || token == "" || !strings.EqualFold(scheme, bearerPrefix) {
		return model.TokenPayload{}, customErrors.Unauthorized(model.MsgAccessTokenRequired)
	}
	return g.codec.Verify(token, model.PurposeAccess)
}

// CheckRefreshToken verifies token and requires it to still be stored.
func (g *Gate) CheckRefreshToken(ctx context.Context, token string) (model.TokenPayload, error) {
	payload, err := g.codec.Verify(token, model.PurposeRefresh)
	if err != nil {
		return model.TokenPayload{}, err
	}
	ok, err := g.tokens.Exists(ctx, token)
	if err != nil {
		return model.TokenPayload{}, customErrors.WrapInternal(err, "CheckRefreshToken")
	}
	if !ok {
		return model.TokenPayload{}, customErrors.Unauthorized(model.MsgRefreshTokenUsedOrNotExist)
	}
	return payload, nil
}

func (g *Gate) CheckEmailVerifyToken(ctx context.Context, token string) (PendingCheck, error) {
	if token == "" {
		return PendingCheck{}, customErrors.Unauthorized(model.MsgEmailVerifyTokenRequired)
	}
	return g.checkPending(ctx, token, model.PurposeEmailVerify, model.MsgEmailVerifyTokenMismatch)
}

func (g *Gate) CheckForgotPasswordToken(ctx context.Context, token string) (PendingCheck, error) {
	if token == "" {
		return PendingCheck{}, customErrors.Unauthorized(model.MsgForgotPasswordTokenRequired)
	}
	return g.checkPending(ctx, token, model.PurposeForgotPassword, model.MsgForgotPasswordTokenMismatch)
}

func (g *Gate) checkPending(ctx context.Context, token string, purpose model.TokenPurpose, mismatch string) (PendingCheck, error) {
	payload, err := g.codec.Verify(token, purpose)
	if err != nil {
		return PendingCheck{}, err
	}

	user, err := g.users.GetUserByID(ctx, payload.UserID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return PendingCheck{}, customErrors.NotFound(model.MsgUserNotFound)
	case err != nil:
		return PendingCheck{}, customErrors.WrapInternal(err, "GetUserByID")
	}

	check := PendingCheck{Payload: payload, User: user}
	if user.Verify == model.Banned {
		return PendingCheck{}, customErrors.Forbidden(model.MsgUserBanned)
	}
	if purpose == model.PurposeEmailVerify && user.Verify == model.Verified {
		check.AlreadyVerified = true
		return check, nil
	}
	if !user.PendingToken(purpose).Matches(token) {
		return PendingCheck{}, customErrors.Unauthorized(mismatch)
	}
	return check, nil
}

// ResolveCredentials finds the user owning email and password. It runs as an
// (email, digest) lookup, so a miss cannot tell which of the two was wrong.
func (g *Gate) ResolveCredentials(ctx context.Context, email, password string) (model.User, error) {
	user, err := g.users.GetUserByCredentials(ctx, email, g.hasher.Hash(password))
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.User{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "ResolveCredentials")
	}
	return user, nil
}
