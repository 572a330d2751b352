package grpc

import (
	"context"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) observe(ctx context.Context, fullMethod string, start time.Time, err error) {
	method := path.Base(fullMethod)
	result := "ok"
	if err != nil {
		result = status.Code(err).String()
	}
	s.metrics.ObserveGatewayCall(method, result)
	s.logger.Debug(ctx, "gateway call", "method", method, "result", result, "duration", time.Since(start))
}

func (s *GRPCServer) observeUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.observe(ctx, info.FullMethod, start, err)
	return resp, err
}

func (s *GRPCServer) observeStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	s.observe(ss.Context(), info.FullMethod, start, err)
	return err
}
