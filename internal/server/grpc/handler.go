package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/storepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// toStatus maps store errors onto the codes the gateway client understands.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrUserCancelled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, common.ErrUnknownProduct), errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) Connect(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) GetProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	out, err := storepb.ProductsToStruct(s.store.Products(storepb.ProductIDsFromStruct(req)))
	if err != nil {
		s.logger.Error(ctx, err.Error())
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) Purchase(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ev, err := s.store.Purchase(ctx, req.GetValue())
	if err != nil {
		if !errors.Is(err, common.ErrUserCancelled) {
			s.logger.Error(ctx, "purchase failed", "product_id", req.GetValue(), "error", err)
		}
		return nil, toStatus(err)
	}
	out, err := storepb.EventToStruct(ev)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) GetPurchaseHistory(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := storepb.EventsToStruct(s.store.Unfinished())
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) FinishTransaction(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, consume := storepb.ParseFinishRequest(req)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "transaction id is required")
	}
	if err := s.store.Finish(ctx, id, consume); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// PurchaseUpdates streams new transactions until the client goes away.
func (s *GRPCServer) PurchaseUpdates(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	updates, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	s.logger.Info(ctx, "update subscriber connected")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-updates:
			if !ok {
				return nil
			}
			msg, err := storepb.EventToStruct(ev)
			if err != nil {
				return status.Error(codes.Internal, "internal error")
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
