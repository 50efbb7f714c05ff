package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "gradtrack"

// GRPCServer exposes the standard gRPC health service. Its status follows ping.
type GRPCServer struct {
	server   *grpc.Server
	health   *grpchealth.Server
	ping     func(context.Context) error
	interval time.Duration
}

func NewGRPCServer(ping func(context.Context) error, interval time.Duration) *GRPCServer {
	server := grpc.NewServer()
	h := grpchealth.NewServer()
	healthpb.RegisterHealthServer(server, h)

	return &GRPCServer{server: server, health: h, ping: ping, interval: interval}
}

// Refresh runs ping once and updates the reported status.
func (s *GRPCServer) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := s.ping(pingCtx); err != nil {
		logger.LogWarn("Health ping failed: " + err.Error())
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	s.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.server.GracefulStop()
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()

	if err := s.server.Serve(lis); err != nil {
		return fmt.Errorf("gRPC health server stopped: %w", err)
	}

	return nil
}
