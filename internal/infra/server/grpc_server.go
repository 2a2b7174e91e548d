package server

import (
	"context"
	"net"
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/grpc/middleware"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/config"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/health"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/ratelimit"
	"github.com/pkg/errors"
	"google.golang.org/grpc/credentials"
	healthgrpc "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const stopTimeout = 5 * time.Second

// NewGRPCServer builds the gRPC server that exposes grpc.health.v1.Health.
// TLS is enabled when both certificate files are configured.
func NewGRPCServer(cfg *config.Config, visitors *ratelimit.Visitors, logger *zap.Logger) (*grpc.Server, *healthgrpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(logger, visitors)),
	}
	if cfg.HTTPSCertFile != "" && cfg.HTTPSKeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load TLS credentials")
		}
		opts = append(opts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(opts...)
	hs := healthgrpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	grpc_prometheus.Register(grpcServer)
	grpc_prometheus.EnableHandlingTimeHistogram()
	reflection.Register(grpcServer)
	return grpcServer, hs, nil
}

// ServeGRPC serves on lis until ctx is done, then stops gracefully, forcing
// the stop after stopTimeout.
func ServeGRPC(ctx context.Context, lis net.Listener, grpcServer *grpc.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- errors.Wrap(err, "serve gRPC")
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("ctx cancelled, stopping gRPC server")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-stopCtx.Done():
		grpcServer.Stop()
	case <-done:
	}
	logger.Info("gRPC server stopped")
	return nil
}

// StartGRPCServer listens on cfg.GRPCAddress and serves until ctx is done.
func StartGRPCServer(ctx context.Context, cfg *config.Config, grpcServer *grpc.Server, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.GRPCAddress)
	}
	return ServeGRPC(ctx, lis, grpcServer, logger)
}

// WatchHealth mirrors the dependency probes into the gRPC health status every
// interval until ctx is done.
func WatchHealth(ctx context.Context, hs *healthgrpc.Server, checker *health.Checker, interval time.Duration, logger *zap.Logger) {
	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		report := checker.Check(ctx)
		if !report.Healthy() {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("dependency check failed", zap.Any("checks", report.Checks))
		}
		hs.SetServingStatus("", status)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
