package middleware

import (
	"net/http"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/ratelimit"
	"github.com/gin-gonic/gin"
)

const msgTooManyRequests = "Too many requests"

// RateLimitPerIP answers 429 once the client IP runs out of tokens.
func RateLimitPerIP(visitors *ratelimit.Visitors) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !visitors.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": msgTooManyRequests})
			return
		}
		c.Next()
	}
}
