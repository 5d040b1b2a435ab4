// Package grpcserver exposes the scan feed to decoder devices over gRPC.
package grpcserver

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"ticketDesk/internal/auth"
	"ticketDesk/internal/config"
	"ticketDesk/internal/logging"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewServer builds a gRPC server with the scan feed and the standard health
// service. Every call except the health check needs a device token signed
// with secret.
func NewServer(secret string, scanners ScannerSource, logger *logging.Logger) *grpc.Server {
	if logger == nil {
		logger = logging.Discard()
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(auth.NewUnaryAuthInterceptor(secret, healthCheckMethod)))

	RegisterScanFeedServer(srv, &FeedServer{Scanners: scanners, Logger: logger.With("component", "scanfeed")})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

// StartGRPC listens on cfg.GRPC.Address and serves the scan feed. It returns
// a shutdown function that drains in-flight calls until ctx expires.
func StartGRPC(cfg *config.Config, scanners ScannerSource, logger *logging.Logger) (func(context.Context) error, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.GRPC.Address == "" {
		return nil, errors.New("grpc address is empty")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return nil, err
	}
	srv := NewServer(cfg.Auth.DeviceSecret, scanners, logger)

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc serve", "error", err)
		}
	}()

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}
