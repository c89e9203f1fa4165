package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/vaultdrop-server/internal/logger"
)

// healthMethodPrefix marks health probes, which are logged at debug level only.
const healthMethodPrefix = "/grpc.health.v1.Health/"

// Logging is a unary interceptor that logs gRPC requests and results.
type Logging struct {
	logger *logger.Logger
}

func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := status.Code(err)
	if err != nil {
		if _, ok := status.FromError(err); !ok {
			code = codes.Internal
		}
	}

	args := []any{
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", code.String(),
	}
	switch {
	case err != nil:
		l.logger.Error("gRPC request failed", append(args, "error", err.Error())...)
	case len(info.FullMethod) >= len(healthMethodPrefix) && info.FullMethod[:len(healthMethodPrefix)] == healthMethodPrefix:
		l.logger.Debug("gRPC request completed", args...)
	default:
		l.logger.Info("gRPC request completed", args...)
	}

	return resp, err
}
