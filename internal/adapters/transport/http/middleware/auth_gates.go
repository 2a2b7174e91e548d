package middleware

import (
	"errors"
	"io"
	"strings"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/gate"
	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// gin keys the gates store their results under.
const (
	KeyAccessPayload  = "decoded_authorization"
	KeyRefreshPayload = "decoded_refresh_token"
	KeyEmailVerify    = "decoded_email_verify_token"
	KeyForgotPassword = "decoded_forgot_password_token"
)

// BindBody decodes the JSON body into obj. The body is cached, so gates and
// handlers can each bind it. An empty body decodes to the zero value.
func BindBody(c *gin.Context, obj any) error {
	err := c.ShouldBindBodyWith(obj, binding.JSON)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return customErrors.NewInvalidArgument("malformed JSON body")
}

func withPayload(c *gin.Context, p model.TokenPayload) {
	c.Request = c.Request.WithContext(gate.WithPayload(c.Request.Context(), p))
}

func setPayload(c *gin.Context, key string, p model.TokenPayload) {
	c.Set(key, p)
	withPayload(c, p)
}

// Payload returns the payload a gate stored for purpose.
func Payload(c *gin.Context, purpose model.TokenPurpose) (model.TokenPayload, bool) {
	return gate.PayloadFrom(c.Request.Context(), purpose)
}

// PendingCheck returns what the email-verify or forgot-password gate found.
func PendingCheck(c *gin.Context, key string) (gate.PendingCheck, bool) {
	v, ok := c.Get(key)
	if !ok {
		return gate.PendingCheck{}, false
	}
	check, ok := v.(gate.PendingCheck)
	return check, ok
}

// AccessTokenGate requires a valid Bearer access token.
func AccessTokenGate(g *gate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := g.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			Fail(c, err)
			return
		}
		setPayload(c, KeyAccessPayload, p)
		c.Next()
	}
}

// RefreshTokenGate requires a body refresh_token that verifies and is still
// stored as a session. Surrounding whitespace is ignored, as in the other
// body token gates.
func RefreshTokenGate(g *gate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := BindBody(c, &body); err != nil {
			Fail(c, err)
			return
		}
		token := strings.TrimSpace(body.RefreshToken)
		if token == "" {
			Fail(c, &customErrors.EntityError{
				Message: model.MsgValidationError,
				Errors:  map[string]string{"refresh_token": model.MsgRefreshTokenRequired},
			})
			return
		}
		p, err := g.CheckRefreshToken(c.Request.Context(), token)
		if err != nil {
			Fail(c, err)
			return
		}
		setPayload(c, KeyRefreshPayload, p)
		c.Next()
	}
}

func EmailVerifyTokenGate(g *gate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Token string `json:"email_verify_token"`
		}
		if err := BindBody(c, &body); err != nil {
			Fail(c, err)
			return
		}
		check, err := g.CheckEmailVerifyToken(c.Request.Context(), strings.TrimSpace(body.Token))
		if err != nil {
			Fail(c, err)
			return
		}
		c.Set(KeyEmailVerify, check)
		withPayload(c, check.Payload)
		c.Next()
	}
}

func ForgotPasswordTokenGate(g *gate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Token string `json:"forgot_password_token"`
		}
		if err := BindBody(c, &body); err != nil {
			Fail(c, err)
			return
		}
		check, err := g.CheckForgotPasswordToken(c.Request.Context(), strings.TrimSpace(body.Token))
		if err != nil {
			Fail(c, err)
			return
		}
		c.Set(KeyForgotPassword, check)
		withPayload(c, check.Payload)
		c.Next()
	}
}
