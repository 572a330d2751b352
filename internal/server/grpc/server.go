// Package grpc exposes a simulated Store over the StoreGateway gRPC service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/dmitrijs2005/creditkeeper/internal/metrics"
	"github.com/dmitrijs2005/creditkeeper/internal/server/gateway"
	"github.com/dmitrijs2005/creditkeeper/internal/storepb"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	storepb.UnimplementedStoreGatewayServer
	address string
	store   *gateway.Store
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewGRPCServer(a string, l logging.Logger, store *gateway.Store, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		store:   store,
		metrics: m,
	}
}

// newServer builds the grpc.Server with the service and interceptors registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.observeUnary),
		grpc.ChainStreamInterceptor(s.observeStream),
	)
	storepb.RegisterStoreGatewayServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
