package http

import (
	nethttp "net/http"
	"slices"
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/gate"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/health"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/metrics"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions carries the optional parts of the router. Nil fields switch
// the matching feature off.
type RouterOptions struct {
	AllowedOrigins   []string
	AllowCredentials bool
	Visitors         *ratelimit.Visitors
	Metrics          *metrics.Metrics
	Health           *health.Checker
}

func corsConfig(opts RouterOptions) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"Authorization",
			"X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(opts.AllowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = opts.AllowedOrigins
	}
	return cfg
}

func NewRouter(h *Handler, g *gate.Gate, opts RouterOptions, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(corsConfig(opts)))
	}
	if opts.Visitors != nil {
		router.Use(middleware.RateLimitPerIP(opts.Visitors))
	}
	router.Use(middleware.ErrorHandler(log))

	access := middleware.AccessTokenGate(g)
	refresh := middleware.RefreshTokenGate(g)

	users := router.Group("/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/logout", access, refresh, h.Logout)
	users.POST("/refresh-token", refresh, h.RefreshToken)
	users.POST("/verify-email", middleware.EmailVerifyTokenGate(g), h.VerifyEmail)
	users.POST("/resend-verify-email", access, h.ResendVerifyEmail)
	users.POST("/forgot-password", h.ForgotPassword)
	users.POST("/verify-forgot-password", middleware.ForgotPasswordTokenGate(g), h.VerifyForgotPassword)
	users.POST("/reset-password", middleware.ForgotPasswordTokenGate(g), h.ResetPassword)
	users.GET("/me", access, h.GetMe)

	if opts.Health != nil {
		router.GET("/health", opts.Health.Handler())
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(nethttp.StatusOK, gin.H{"status": health.StatusUp, "time": time.Now().Unix()})
		})
	}
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	return router
}
