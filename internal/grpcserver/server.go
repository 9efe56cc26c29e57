package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// ServiceName is the health service name reported alongside the overall
// server status.
const ServiceName = "pentutor.rooms"

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

// Server serves the standard gRPC health service. Its status follows the
// registered checkers.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	checkers map[string]Checker
	interval time.Duration
}

// New creates a health server with logging interceptors.
func New(logger zerolog.Logger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	gs := grpc.NewServer(
		grpc.UnaryInterceptor(pkglog.UnaryServerInterceptor(logger)),
		grpc.StreamInterceptor(pkglog.StreamServerInterceptor(logger)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		grpc:     gs,
		health:   hs,
		checkers: make(map[string]Checker),
		interval: interval,
	}
}

// AddChecker registers a dependency check. Must be called before Serve.
func (s *Server) AddChecker(name string, check Checker) {
	s.checkers[name] = check
}

// Check runs every checker once and updates the reported status.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	l := pkglog.Ctx(ctx)
	for name, check := range s.checkers {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := check(cctx)
		cancel()
		if err != nil {
			l.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve listens on port and blocks until the server stops. Checks run every
// interval until ctx is done.
func (s *Server) Serve(ctx context.Context, port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.Check(ctx)
	go s.watch(ctx)
	return s.grpc.Serve(listener)
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Stop marks the server not serving and stops it gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
