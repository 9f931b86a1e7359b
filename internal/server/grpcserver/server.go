package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server exposes process liveness over the standard grpc.health.v1 service.
// Front-end processes and the prober both call Check against it.
type Server struct {
	port   int
	log    *zap.Logger
	health *health.Server
}

func New(port int, log *zap.Logger) *Server {
	return &Server{port: port, log: log, health: health.NewServer()}
}

// SetServing flips the reported status for the whole server.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Run serves until ctx is canceled, then stops gracefully with a 5 second
// cap.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(s.log),
		LoggingUnary(s.log),
	))
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	s.SetServing(true)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("grpc listener up", zap.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("grpc listener: %w", err)
	case <-ctx.Done():
	}

	s.health.Shutdown()
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		srv.Stop()
	}
	return nil
}
