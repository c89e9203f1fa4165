// Package health keeps the gRPC health service in sync with the entitlement store.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/vaultdrop-server/internal/logger"
)

// Service is the health service name reported for the public API.
const Service = "vaultdrop.API"

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reporter probes the database and publishes the result on a health server.
type Reporter struct {
	server  *health.Server
	db      Pinger
	timeout time.Duration
	logger  *logger.Logger
}

func NewReporter(server *health.Server, db Pinger, logger *logger.Logger) *Reporter {
	return &Reporter{
		server:  server,
		db:      db,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Probe pings the database once and updates the serving status.
func (r *Reporter) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := r.db.Ping(ctx); err != nil {
		r.logger.Warn("database health probe failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}

	r.server.SetServingStatus("", st)
	r.server.SetServingStatus(Service, st)
	return st
}

// Run probes every interval until ctx is done, then marks everything as not serving.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Probe(ctx)
		}
	}
}
