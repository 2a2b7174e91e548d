package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgInternalServerError = "Internal server error"

// ErrorHandler renders the last error a handler attached with c.Error, unless
// the handler already wrote a response.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		if customErrors.StatusOf(last.Err) == http.StatusInternalServerError {
			log.Error("unhandled error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(last.Err),
			)
		}
		RenderError(c, last.Err)
	}
}

// Fail records err for ErrorHandler and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// RenderError writes err the way every endpoint reports failures:
// 422 {message, errors} for field errors, {message} for classified errors and
// 500 {message, error_info} for everything else.
func RenderError(c *gin.Context, err error) {
	var entity *customErrors.EntityError
	if errors.As(err, &entity) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, entity)
		return
	}

	status := customErrors.StatusOf(err)
	if status != http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"message": publicMessage(err)})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{
		"message":    msgInternalServerError,
		"error_info": errorInfo(err),
	})
}

func publicMessage(err error) string {
	var e *customErrors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	var te *customErrors.TokenError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}

// errorInfo is the JSON form of err, or its text when err has no exported
// fields to encode.
func errorInfo(err error) any {
	b, mErr := json.Marshal(err)
	if mErr != nil || string(b) == "{}" || string(b) == "null" {
		return gin.H{"error": err.Error()}
	}
	return json.RawMessage(b)
}
