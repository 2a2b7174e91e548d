// Package http serves the /users endpoints over gin.
package http

import (
	"errors"
	nethttp "net/http"
	"strings"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http/validation"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/gate"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/service"
	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc       service.Service
	gate      *gate.Gate
	validator *validation.Validator
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewHandler wires the endpoints. m may be nil.
func NewHandler(svc service.Service, g *gate.Gate, v *validation.Validator, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{svc: svc, gate: g, validator: v, metrics: m, log: log}
}

func (h *Handler) record(flow string, err error) {
	if h.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	h.metrics.AuthEvent(flow, result)
}

// fail hands err to the error funnel and counts the failed flow.
func (h *Handler) fail(c *gin.Context, flow string, err error) {
	h.record(flow, err)
	middleware.Fail(c, err)
}

func (h *Handler) Register(c *gin.Context) {
	var body dto.RegisterDTO
	if err := middleware.BindBody(c, &body); err != nil {
		h.fail(c, "register", err)
		return
	}

	col := h.validator.Collect()
	col.Struct(&body)
	col.Check("email", func() error {
		exists, err := h.svc.CheckEmailExists(c.Request.Context(), body.Email)
		if err != nil {
			return err
		}
		if exists {
			return errors.New(model.MsgEmailAlreadyExists)
		}
		return nil
	})
	if err := col.Err(); err != nil {
		h.fail(c, "register", err)
		return
	}

	dob, _ := validation.ParseISO8601(body.DateOfBirth)
	pair, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Name:        body.Name,
		Email:       body.Email,
		Password:    body.Password,
		DateOfBirth: dob,
	})
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	h.record("register", nil)
	c.JSON(nethttp.StatusOK, dto.NewTokensResponse(model.MsgRegisterSuccess, pair))
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if err := middleware.BindBody(c, &body); err != nil {
		h.fail(c, "login", err)
		return
	}

	var user model.User
	col := h.validator.Collect()
	col.Struct(&body)
	col.Check("email", func() error {
		u, err := h.gate.ResolveCredentials(c.Request.Context(), body.Email, body.Password)
		if customErrors.IsInvalidCredentials(err) {
			return errors.New(model.MsgEmailOrPasswordIncorrect)
		}
		user = u
		return err
	})
	if err := col.Err(); err != nil {
		h.fail(c, "login", err)
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	h.record("login", nil)
	c.JSON(nethttp.StatusOK, dto.NewTokensResponse(model.MsgLoginSuccess, pair))
}

func (h *Handler) Logout(c *gin.Context) {
	var body dto.LogoutDTO
	if err := middleware.BindBody(c, &body); err != nil {
		h.fail(c, "logout", err)
		return
	}
	if err := h.svc.Logout(c.Request.Context(), strings.TrimSpace(body.RefreshToken)); err != nil {
		h.fail(c, "logout", err)
		return
	}
	h.record("logout", nil)
	c.JSON(nethttp.StatusOK, dto.MessageResponse{Message: model.MsgLogoutSuccess})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var body dto.RefreshDTO
	if err := middleware.BindBody(c, &body); err != nil {
		h.fail(c, "refresh_token", err)
		return
	}
	payload, ok := middleware.Payload(c, model.PurposeRefresh)
	if !ok {
		h.fail(c, "refresh_token", customErrors.Unauthorized(model.MsgRefreshTokenRequired))
		return
	}

	pair, err := h.svc.RefreshToken(c.Request.Context(), payload.UserID, strings.TrimSpace(body.RefreshToken))
	if err != nil {
		h.fail(c, "refresh_token", err)
		return
	}
	h.record("refresh_token", nil)
	c.JSON(nethttp.StatusOK, dto.NewTokensResponse(model.MsgRefreshTokenSuccess, pair))
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	check, ok := middleware.PendingCheck(c, middleware.KeyEmailVerify)
	if !ok {
		h.fail(c, "verify_email", customErrors.Unauthorized(model.MsgEmailVerifyTokenRequired))
		return
	}
	if check.AlreadyVerified {
		h.record("verify_email", nil)
		c.JSON(nethttp.StatusOK, dto.MessageResponse{Message: model.MsgEmailAlreadyVerified})
		return
	}

	var body dto.VerifyEmailDTO
	if err := middleware.BindBody(c, &body); err != nil {
		h.fail(c, "verify_email", err)
		return
	}
	res, err := h.svc.VerifyEmail(c.Request.Context(), check.User.ID, strings.TrimSpace(body.EmailVerifyToken))
	if err != nil {
		h.fail(c, "verify_email", err)
		return
	}
	h.record("verify_email", nil)
	if res.Tokens == nil {
		c.JSON(nethttp.StatusOK, dto.MessageResponse{Message: res.Message})
		return
	}
	c.JSON(nethttp.StatusOK, dto.NewTokensResponse(res.Message, *res.Tokens))
}

func (h *Handler) ResendVerifyEmail(c *gin.Context) {
	payload, ok := middleware.Payload(c, model.PurposeAccess)
	if !ok {
		h.fail(c, "resend_verify_email", customErrors.Unauthorized(model.MsgAccessTokenRequired))
		return
	}
	msg, err := h.svc.ResendEmailVerify(c.Request.Context(), payload.UserID)
	if err != nil {
		h.fail(c, "resend_verify_email", err)
		return
	}
	h.record("resend_verify_email", nil)
	c.JSON(nethttp.StatusOK, dto.MessageResponse{Message: msg})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var body dto.ForgotPasswordDTO
	if err := middleware.BindBody(c, &body); err != nil {
		h.fail(c, "forgot_password", err)
		return
	}

	var user model.User
	col := h.validator.Collect()
	col.Struct(&body)
	col.Check("email", func() error {
		u, err := h.svc.FindUserByEmail(c.Request.Context(), body.Email)
		user = u
		return err
	})
	if err := col.Err(); err != nil {
		h.fail(c, "forgot_password", err)
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), user.ID); err != nil {
		h.fail(c, "forgot_password", err)
		return
	}
	h.record("forgot_password", nil)
	c.JSON(nethttp.StatusOK, dto.MessageResponse{Message: model.MsgCheckEmailToResetPassword})
}

func (h *Handler) VerifyForgotPassword(c *gin.Context) {
	if _, ok := middleware.PendingCheck(c, middleware.KeyForgotPassword); !ok {
		h.fail(c, "verify_forgot_password", customErrors.Unauthorized(model.MsgForgotPasswordTokenRequired))
		return
	}
	h.record("verify_forgot_password", nil)
	c.JSON(nethttp.StatusOK, dto.MessageResponse{Message: model.MsgVerifyForgotPasswordSuccess})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	check, ok := middleware.PendingCheck(c, middleware.KeyForgotPassword)
	if !ok {
		h.fail(c, "reset_password", customErrors.Unauthorized(model.MsgForgotPasswordTokenRequired))
		return
	}

	var body dto.ResetPasswordDTO
	if err := middleware.BindBody(c, &body); err != nil {
		h.fail(c, "reset_password", err)
		return
	}
	col := h.validator.Collect()
	col.Struct(&body)
	if err := col.Err(); err != nil {
		h.fail(c, "reset_password", err)
		return
	}

	err := h.svc.ResetPassword(c.Request.Context(), check.User.ID, strings.TrimSpace(body.ForgotPasswordToken), body.Password)
	if err != nil {
		h.fail(c, "reset_password", err)
		return
	}
	h.record("reset_password", nil)
	c.JSON(nethttp.StatusOK, dto.MessageResponse{Message: model.MsgResetPasswordSuccess})
}

func (h *Handler) GetMe(c *gin.Context) {
	payload, ok := middleware.Payload(c, model.PurposeAccess)
	if !ok {
		middleware.Fail(c, customErrors.Unauthorized(model.MsgAccessTokenRequired))
		return
	}
	user, err := h.svc.GetMe(c.Request.Context(), payload.UserID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.UserResponseEnvelope{
		Message: model.MsgGetMeSuccess,
		Result:  dto.NewUserResponse(user),
	})
}
