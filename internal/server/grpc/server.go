// Package grpc exposes the standard grpc.health.v1 service so orchestrators
// can probe the API process and the inference backend behind it.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// shutdownTimeout bounds GracefulStop; open Watch streams never finish on their own.
const shutdownTimeout = 10 * time.Second

// InferenceService is the health service name reporting the detector backend.
const InferenceService = "inference"

// Prober checks a dependency; nil means healthy.
type Prober interface {
	Health(ctx context.Context) error
}

type GRPCServer struct {
	address       string
	logger        logging.Logger
	health        *health.Server
	prober        Prober
	probeInterval time.Duration
	stopTimeout   time.Duration
}

// NewGRPCServer returns a health server for address. When probeInterval is
// positive the prober is re-checked periodically, otherwise only at start.
func NewGRPCServer(a string, l logging.Logger, p Prober, probeInterval time.Duration) *GRPCServer {
	return &GRPCServer{
		address:       a,
		logger:        l.With("module", "grpc_server"),
		health:        health.NewServer(),
		prober:        p,
		probeInterval: probeInterval,
		stopTimeout:   shutdownTimeout,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve runs on an existing listener until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)
	if s.probeInterval > 0 {
		go s.probeLoop(ctx)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		s.stop(srv)
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

// stop drains in-flight calls, then force-closes whatever is still open
// once stopTimeout elapses.
func (s *GRPCServer) stop(srv *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	t := time.NewTimer(s.stopTimeout)
	defer t.Stop()
	select {
	case <-stopped:
	case <-t.C:
		s.logger.Warn(context.Background(), "graceful stop timed out, closing open streams", "timeout", s.stopTimeout.String())
		srv.Stop()
	}
}

func (s *GRPCServer) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.prober != nil {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.prober.Health(pctx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "inference backend unhealthy", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(InferenceService, status)
}

func (s *GRPCServer) probeLoop(ctx context.Context) {
	t := time.NewTicker(s.probeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}
