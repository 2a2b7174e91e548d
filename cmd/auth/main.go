package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authhttp "github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http/validation"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/gate"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/hasher"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/jwt"
	appsvc "github.com/Miraines/MoonyAndStarry/social-auth/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/config"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/health"
	lg "github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/mailer"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/metrics"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/ratelimit"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/server"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 5 * time.Second
	healthInterval    = 15 * time.Second
	probeTimeout      = 2 * time.Second
	visitorCacheSize  = 10_000
	visitorIdleExpiry = time.Hour
)

func newDeliverer(cfg *config.Config, log *zap.Logger) (appsvc.Deliverer, error) {
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST is not set, tokens are logged instead of mailed")
		return mailer.NewLogDeliverer(log), nil
	}
	return mailer.NewSMTPDeliverer(cfg.SMTP)
}

func main() {
	production := os.Getenv(gin.EnvGinMode) == gin.ReleaseMode
	zapLog := lg.Must(os.Getenv("LOG_LEVEL"), production)
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker(probeTimeout)
	st, err := openStores(rootCtx, cfg, checker, zapLog)
	if err != nil {
		zapLog.Fatal("failed to open stores", zap.Error(err))
	}
	defer st.Close()

	h, err := hasher.New(cfg.Hasher)
	if err != nil {
		zapLog.Fatal("failed to init hasher", zap.Error(err))
	}
	codec := jwt.NewCodec(cfg)
	deliverer, err := newDeliverer(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("failed to init mailer", zap.Error(err))
	}

	svc := appsvc.New(st.users, st.tokens, codec, h, deliverer, cfg, zapLog)
	authGate := gate.New(codec, st.users, st.tokens, h)

	m, err := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		zapLog.Fatal("failed to register metrics", zap.Error(err))
	}
	visitors := ratelimit.NewVisitors(cfg.RateLimit, cfg.RateBurst, visitorCacheSize, visitorIdleExpiry)
	visitors.StartJanitor(rootCtx)

	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := authhttp.NewHandler(svc, authGate, validation.New(), m, zapLog)
	router := authhttp.NewRouter(handler, authGate, authhttp.RouterOptions{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowCredentials,
		Visitors:         visitors,
		Metrics:          m,
		Health:           checker,
	}, zapLog)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddress))
		var err error
		if cfg.HTTPSCertFile != "" && cfg.HTTPSKeyFile != "" {
			err = srv.ListenAndServeTLS(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		zapLog.Info("shutdown signal received")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctxShutdown)
	})

	if cfg.GRPCAddress != "" {
		grpcServer, hs, err := server.NewGRPCServer(cfg, visitors, zapLog)
		if err != nil {
			zapLog.Fatal("failed to build gRPC server", zap.Error(err))
		}
		g.Go(func() error {
			server.WatchHealth(ctx, hs, checker, healthInterval, zapLog)
			return nil
		})
		g.Go(func() error {
			return server.StartGRPCServer(ctx, cfg, grpcServer, zapLog)
		})
	}

	if cfg.SessionExpire {
		sweeper := appsvc.NewSweeper(st.tokens, cfg.SessionSweepInterval, zapLog)
		g.Go(func() error { return sweeper.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
