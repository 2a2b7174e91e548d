package service

import (
	"context"
	"errors"
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/hasher"
	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	repo "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deliverer hands a freshly minted pending token to the user.
type Deliverer interface {
	Deliver(ctx context.Context, purpose model.TokenPurpose, email, token string) error
}

type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth time.Time
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (model.TokenPair, error)
	// Login issues a new session for a user already resolved by credentials.
	Login(ctx context.Context, userID uuid.UUID) (model.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string) (model.TokenPair, error)
	VerifyEmail(ctx context.Context, userID uuid.UUID, token string) (model.VerifyEmailResult, error)
	ResendEmailVerify(ctx context.Context, userID uuid.UUID) (string, error)
	ForgotPassword(ctx context.Context, userID uuid.UUID) error
	ResetPassword(ctx context.Context, userID uuid.UUID, token, newPassword string) error
	GetMe(ctx context.Context, userID uuid.UUID) (model.User, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	CheckEmailExists(ctx context.Context, email string) (bool, error)
}

type authService struct {
	userRepo  repo.UserRepo
	tokenRepo repo.TokenRepo
	codec     jwt.Codec
	hasher    hasher.Hasher
	deliverer Deliverer
	cfg       *config.Config
	log       *zap.Logger
	now       func() time.Time
}

func New(
	ur repo.UserRepo,
	tr repo.TokenRepo,
	codec jwt.Codec,
	h hasher.Hasher,
	d Deliverer,
	cfg *config.Config,
	log *zap.Logger,
) Service {
	return &authService{
		userRepo: ur, tokenRepo: tr, codec: codec, hasher: h, deliverer: d,
		cfg: cfg, log: log, now: time.Now,
	}
}

func (a *authService) Register(ctx context.Context, in RegisterInput) (model.TokenPair, error) {
	id := uuid.New()
	verifyToken, _, err := a.codec.Sign(id, model.PurposeEmailVerify)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "SignEmailVerify")
	}

	now := a.now()
	user := model.User{
		ID:             id,
		Email:          in.Email,
		PasswordDigest: a.hasher.Hash(in.Password),
		Name:           in.Name,
		Verify:         model.Unverified,
		EmailVerifyToken: &model.PendingToken{
			Purpose:  model.PurposeEmailVerify,
			Value:    verifyToken,
			IssuedAt: now,
		},
		Profile:   model.Profile{DateOfBirth: in.DateOfBirth},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err = a.userRepo.CreateUser(ctx, user); err != nil {
		// the email check happens before this call, so a duplicate here is a lost race
		if errors.Is(err, customErrors.ErrAlreadyExists) {
			return model.TokenPair{}, customErrors.Conflict(model.MsgEmailAlreadyExists)
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	pair, err := a.issueTokens(ctx, id)
	if err != nil {
		return model.TokenPair{}, err
	}
	a.deliver(ctx, model.PurposeEmailVerify, user.Email, verifyToken)
	return pair, nil
}

func (a *authService) Login(ctx context.Context, userID uuid.UUID) (model.TokenPair, error) {
	return a.issueTokens(ctx, userID)
}

func (a *authService) Logout(ctx context.Context, refreshToken string) error {
	if err := a.tokenRepo.Delete(ctx, refreshToken); err != nil {
		return customErrors.WrapInternal(err, "Logout")
	}
	return nil
}

func (a *authService) RefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string) (model.TokenPair, error) {
	if err := a.tokenRepo.Delete(ctx, refreshToken); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}
	return a.issueTokens(ctx, userID)
}

func (a *authService) VerifyEmail(ctx context.Context, userID uuid.UUID, token string) (model.VerifyEmailResult, error) {
	user, err := a.getUser(ctx, userID)
	if err != nil {
		return model.VerifyEmailResult{}, err
	}
	switch user.Verify {
	case model.Banned:
		return model.VerifyEmailResult{}, customErrors.Forbidden(model.MsgUserBanned)
	case model.Verified:
		return model.VerifyEmailResult{Message: model.MsgEmailAlreadyVerified, AlreadyVerified: true}, nil
	}

	verified := model.Verified
	err = a.userRepo.ConsumePendingToken(ctx, userID, model.PurposeEmailVerify, token, model.UserUpdate{
		Verify:    &verified,
		UpdatedAt: a.now(),
	})
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.VerifyEmailResult{}, customErrors.Unauthorized(model.MsgEmailVerifyTokenMismatch)
	case err != nil:
		return model.VerifyEmailResult{}, customErrors.WrapInternal(err, "VerifyEmail")
	}

	pair, err := a.issueTokens(ctx, userID)
	if err != nil {
		return model.VerifyEmailResult{}, err
	}
	return model.VerifyEmailResult{Message: model.MsgEmailVerifySuccess, Tokens: &pair}, nil
}

func (a *authService) ResendEmailVerify(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := a.getUser(ctx, userID)
	if err != nil {
		return "", err
	}
	switch user.Verify {
	case model.Banned:
		return "", customErrors.Forbidden(model.MsgUserBanned)
	case model.Verified:
		return model.MsgEmailAlreadyVerified, nil
	}

	token, err := a.setPendingToken(ctx, userID, model.PurposeEmailVerify)
	if err != nil {
		return "", err
	}
	a.deliver(ctx, model.PurposeEmailVerify, user.Email, token)
	return model.MsgResendEmailVerifySuccess, nil
}

func (a *authService) ForgotPassword(ctx context.Context, userID uuid.UUID) error {
	user, err := a.getUser(ctx, userID)
	if err != nil {
		return err
	}

	token, err := a.setPendingToken(ctx, userID, model.PurposeForgotPassword)
	if err != nil {
		return err
	}
	a.deliver(ctx, model.PurposeForgotPassword, user.Email, token)
	return nil
}

func (a *authService) ResetPassword(ctx context.Context, userID uuid.UUID, token, newPassword string) error {
	digest := a.hasher.Hash(newPassword)
	err := a.userRepo.ConsumePendingToken(ctx, userID, model.PurposeForgotPassword, token, model.UserUpdate{
		PasswordDigest: &digest,
		UpdatedAt:      a.now(),
	})
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return customErrors.Unauthorized(model.MsgForgotPasswordTokenMismatch)
	case err != nil:
		return customErrors.WrapInternal(err, "ResetPassword")
	}

	if a.cfg.RevokeSessionsOnReset {
		if err := a.tokenRepo.DeleteByUser(ctx, userID); err != nil {
			return customErrors.WrapInternal(err, "RevokeSessions")
		}
	}
	return nil
}

func (a *authService) GetMe(ctx context.Context, userID uuid.UUID) (model.User, error) {
	return a.getUser(ctx, userID)
}

func (a *authService) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	user, err := a.userRepo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.User{}, customErrors.NotFound(model.MsgUserNotFound)
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "FindUserByEmail")
	}
	return user, nil
}

func (a *authService) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	_, err := a.userRepo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return false, nil
	case err != nil:
		return false, customErrors.WrapInternal(err, "CheckEmailExists")
	}
	return true, nil
}

func (a *authService) getUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := a.userRepo.GetUserByID(ctx, id)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.User{}, customErrors.NotFound(model.MsgUserNotFound)
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "GetUserByID")
	}
	return user, nil
}

// setPendingToken mints a token for purpose and overwrites the stored slot.
func (a *authService) setPendingToken(ctx context.Context, id uuid.UUID, purpose model.TokenPurpose) (string, error) {
	token, _, err := a.codec.Sign(id, purpose)
	if err != nil {
		return "", customErrors.WrapInternal(err, "SignPendingToken")
	}
	now := a.now()
	pt := model.PendingToken{Purpose: purpose, Value: token, IssuedAt: now}
	if err := a.userRepo.SetPendingToken(ctx, id, pt, now); err != nil {
		if errors.Is(err, customErrors.ErrNotFound) {
			return "", customErrors.NotFound(model.MsgUserNotFound)
		}
		return "", customErrors.WrapInternal(err, "SetPendingToken")
	}
	return token, nil
}

func (a *authService) issueTokens(ctx context.Context, uid uuid.UUID) (model.TokenPair, error) {
	at, _, err := a.codec.Sign(uid, model.PurposeAccess)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "SignAccessToken")
	}
	rt, rtExp, err := a.codec.Sign(uid, model.PurposeRefresh)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "SignRefreshToken")
	}

	now := a.now()
	record := model.RefreshToken{Token: rt, UserID: uid, CreatedAt: now}
	if a.cfg.SessionExpire {
		record.ExpiresAt = rtExp
	}
	if err = a.tokenRepo.Store(ctx, record); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "StoreRefresh")
	}

	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
	}, nil
}

// deliver failures are logged only; the pending token is stored and can be resent.
func (a *authService) deliver(ctx context.Context, purpose model.TokenPurpose, email, token string) {
	if a.deliverer == nil {
		return
	}
	if err := a.deliverer.Deliver(ctx, purpose, email, token); err != nil {
		a.log.Warn("token delivery failed",
			zap.String("purpose", string(purpose)),
			zap.String("email", email),
			zap.Error(err))
	}
}
