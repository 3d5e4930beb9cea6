// Package grpc exposes the standard gRPC health service. The overall status
// and the "filestash.Store" service follow periodic pings of the category
// store.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/filestash/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// StoreService is the health service name reported for the category store.
const StoreService = "filestash.Store"

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	address  string
	store    Pinger
	interval time.Duration
	health   *health.Server
	logger   logging.Logger
}

func NewHealthServer(address string, l logging.Logger, store Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthServer{
		address:  address,
		store:    store,
		interval: interval,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_health"),
	}
}

func (s *HealthServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)
	go s.probeLoop(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC health server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

func (s *HealthServer) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *HealthServer) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.store.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn(ctx, "store ping failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(StoreService, st)
}

func (s *HealthServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	started := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "grpc call", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(started))
	return resp, err
}
