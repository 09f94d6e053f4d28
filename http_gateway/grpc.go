package gateway

import (
	"context"
	"log/slog"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer builds the gRPC side of the service: the standard health
// service plus reflection. The overall status starts as SERVING; use
// WatchStorage to tie it to the storage backend.
func NewGRPCServer(log *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts,
		grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
			grpc_recovery.StreamServerInterceptor(),
		)),
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_recovery.UnaryServerInterceptor(),
			unaryLogger(log),
		)),
	)
	grpcServer := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return grpcServer, healthServer
}

// WatchStorage pings storage every interval and flips the overall health
// status accordingly. It returns when ctx is done.
func WatchStorage(ctx context.Context, storage Pinger, hs *health.Server, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		err := storage.Ping(pingCtx)
		cancel()

		switch {
		case err != nil && serving:
			log.WarnContext(ctx, "storage unreachable", "error", err)
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			serving = false
		case err == nil && !serving:
			log.InfoContext(ctx, "storage reachable again")
			hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			serving = true
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
