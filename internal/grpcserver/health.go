package grpcserver

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"collab-service/internal/observability"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// New builds the gRPC server exposing grpc.health.v1.Health.
func New() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// WatchDatabase flips the overall serving status with the database until ctx ends.
func WatchDatabase(ctx context.Context, hs *health.Server, ping Pinger, interval time.Duration, logger *slog.Logger) {
	check := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if err := ping(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("database ping failed", "error", err)
		}
		hs.SetServingStatus("", status)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}
