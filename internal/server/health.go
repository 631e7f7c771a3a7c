// Package server runs the gRPC health endpoint of the indexer.
package server

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/util"
)

const defaultCheckInterval = 15 * time.Second

// Pinger reports whether the engine cluster is usable.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// HealthServer serves grpc.health.v1 for the whole process and for
// serviceName. Both follow the engine reachability.
type HealthServer struct {
	server      *grpc.Server
	health      *health.Server
	serviceName string
	pinger      Pinger
	interval    time.Duration
	logger      *util.Logger
	metrics     *util.Metrics
}

func NewHealthServer(cfg config.GRPCConfig, serviceName string, pinger Pinger, logger *util.Logger, metrics *util.Metrics) *HealthServer {
	opts := []grpc.ServerOption{}
	if cfg.MaxRecvMsgSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize))
	}
	if cfg.MaxSendMsgSize > 0 {
		opts = append(opts, grpc.MaxSendMsgSize(cfg.MaxSendMsgSize))
	}
	server := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	reflection.Register(server)

	interval := cfg.HealthCheckInterval
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	return &HealthServer{
		server:      server,
		health:      healthServer,
		serviceName: serviceName,
		pinger:      pinger,
		interval:    interval,
		logger:      logger,
		metrics:     metrics,
	}
}

// Check pings the engine once and publishes the result.
func (s *HealthServer) Check(ctx context.Context) bool {
	up := s.pinger.Ping(ctx)
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !up {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		s.logger.Warnw("Engine health check failed", "service", s.serviceName)
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.serviceName, status)
	s.metrics.SetEngineUp(up)
	return up
}

// Watch re-checks the engine every interval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

func (s *HealthServer) Serve(listener net.Listener) error {
	return s.server.Serve(listener)
}

// Shutdown marks every service NOT_SERVING and stops gracefully, forcing
// the stop when ctx expires first.
func (s *HealthServer) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Infow("gRPC server stopped gracefully")
	case <-ctx.Done():
		s.logger.Warnw("gRPC server shutdown timeout, forcing stop")
		s.server.Stop()
	}
}
