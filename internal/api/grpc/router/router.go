package router

import (
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/dtroode/vaultdrop-server/internal/api/grpc/middleware"
	"github.com/dtroode/vaultdrop-server/internal/logger"
)

// Router builds the ops gRPC server: health checks and reflection.
type Router struct {
	health *health.Server
	logger *logger.Logger
}

func New(healthServer *health.Server, logger *logger.Logger) *Router {
	return &Router{
		health: healthServer,
		logger: logger,
	}
}

// Register returns a server with logging and panic recovery installed.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recoverPanic := recovery.WithRecoveryHandler(func(p any) error {
		r.logger.Error("gRPC handler panicked", "panic", fmt.Sprint(p))
		return status.Error(codes.Internal, "internal error")
	})

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoverPanic),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoverPanic),
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	return s
}
