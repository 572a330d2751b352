// Package storepb defines the StoreGateway gRPC service used between the
// credit engine and a store gateway. Messages are well-known protobuf types
// (Struct, StringValue, Empty), so no generated code is needed; the
// descriptor below plays the role of a *_grpc.pb.go file.
package storepb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "creditkeeper.store.v1.StoreGateway"

const (
	MethodConnect            = "/" + ServiceName + "/Connect"
	MethodGetProducts        = "/" + ServiceName + "/GetProducts"
	MethodPurchase           = "/" + ServiceName + "/Purchase"
	MethodGetPurchaseHistory = "/" + ServiceName + "/GetPurchaseHistory"
	MethodFinishTransaction  = "/" + ServiceName + "/FinishTransaction"
	MethodPurchaseUpdates    = "/" + ServiceName + "/PurchaseUpdates"
)

// StoreGatewayServer is the server API of the gateway.
type StoreGatewayServer interface {
	Connect(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Purchase(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetPurchaseHistory(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	FinishTransaction(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	PurchaseUpdates(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedStoreGatewayServer answers every call with Unimplemented.
type UnimplementedStoreGatewayServer struct{}

func (UnimplementedStoreGatewayServer) Connect(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Connect not implemented")
}
func (UnimplementedStoreGatewayServer) GetProducts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetProducts not implemented")
}
func (UnimplementedStoreGatewayServer) Purchase(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Purchase not implemented")
}
func (UnimplementedStoreGatewayServer) GetPurchaseHistory(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPurchaseHistory not implemented")
}
func (UnimplementedStoreGatewayServer) FinishTransaction(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method FinishTransaction not implemented")
}
func (UnimplementedStoreGatewayServer) PurchaseUpdates(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method PurchaseUpdates not implemented")
}

func RegisterStoreGatewayServer(s grpc.ServiceRegistrar, srv StoreGatewayServer) {
	s.RegisterService(&StoreGateway_ServiceDesc, srv)
}

func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Res proto.Message](method string, call func(StoreGatewayServer, context.Context, PReq) (Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StoreGatewayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StoreGatewayServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func purchaseUpdatesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StoreGatewayServer).PurchaseUpdates(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

var StoreGateway_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Connect", Handler: unary(MethodConnect, StoreGatewayServer.Connect)},
		{MethodName: "GetProducts", Handler: unary(MethodGetProducts, StoreGatewayServer.GetProducts)},
		{MethodName: "Purchase", Handler: unary(MethodPurchase, StoreGatewayServer.Purchase)},
		{MethodName: "GetPurchaseHistory", Handler: unary(MethodGetPurchaseHistory, StoreGatewayServer.GetPurchaseHistory)},
		{MethodName: "FinishTransaction", Handler: unary(MethodFinishTransaction, StoreGatewayServer.FinishTransaction)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "PurchaseUpdates", Handler: purchaseUpdatesHandler, ServerStreams: true},
	},
	Metadata: "creditkeeper/store/v1/store.proto",
}

// StoreGatewayClient is the client API of the gateway.
type StoreGatewayClient interface {
	Connect(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetProducts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Purchase(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetPurchaseHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	FinishTransaction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	PurchaseUpdates(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type storeGatewayClient struct {
	cc grpc.ClientConnInterface
}

func NewStoreGatewayClient(cc grpc.ClientConnInterface) StoreGatewayClient {
	return &storeGatewayClient{cc}
}

func (c *storeGatewayClient) Connect(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodConnect, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeGatewayClient) GetProducts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetProducts, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeGatewayClient) Purchase(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodPurchase, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeGatewayClient) GetPurchaseHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetPurchaseHistory, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeGatewayClient) FinishTransaction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodFinishTransaction, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeGatewayClient) PurchaseUpdates(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &StoreGateway_ServiceDesc.Streams[0], MethodPurchaseUpdates, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
