package storefront

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/dmitrijs2005/creditkeeper/internal/storepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type GatewayAdapter struct {
	conn   *grpc.ClientConn
	client storepb.StoreGatewayClient
	log    logging.Logger
}

// NewGatewayAdapter dials the store gateway at endpoint. The connection is
// lazy; Connect is the first call that reaches the gateway.
func NewGatewayAdapter(endpoint string, log logging.Logger, opts ...grpc.DialOption) (*GatewayAdapter, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway client: %w", err)
	}
	return &GatewayAdapter{
		conn:   conn,
		client: storepb.NewStoreGatewayClient(conn),
		log:    log.With("module", "gateway_adapter"),
	}, nil
}

func (a *GatewayAdapter) Name() string { return "gateway" }

func (a *GatewayAdapter) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Canceled:
		return common.ErrUserCancelled
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", common.ErrStoreUnavailable, st.Message())
	case codes.NotFound:
		return &common.UnknownProductError{ProductID: st.Message()}
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (a *GatewayAdapter) Connect(ctx context.Context) error {
	_, err := a.client.Connect(ctx, &emptypb.Empty{})
	return a.mapError(err)
}

func (a *GatewayAdapter) GetProducts(ctx context.Context, productIDs []string) ([]models.Product, error) {
	resp, err := a.client.GetProducts(ctx, storepb.ProductIDsToStruct(productIDs))
	if err != nil {
		return nil, a.mapError(err)
	}
	return storepb.ProductsFromStruct(resp), nil
}

func (a *GatewayAdapter) Purchase(ctx context.Context, productID string) (models.PurchaseEvent, error) {
	resp, err := a.client.Purchase(ctx, wrapperspb.String(productID))
	if err != nil {
		return models.PurchaseEvent{}, a.mapError(err)
	}
	return storepb.EventFromStruct(resp), nil
}

func (a *GatewayAdapter) Updates(ctx context.Context) (<-chan models.PurchaseEvent, error) {
	stream, err := a.client.PurchaseUpdates(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, a.mapError(err)
	}

	ch := make(chan models.PurchaseEvent)
	go func() {
		defer close(ch)
		for {
			msg, err := stream.Recv()
			if err != nil {
				if ctx.Err() == nil {
					a.log.Warn(ctx, "purchase update stream ended", "error", err)
				}
				return
			}
			select {
			case ch <- storepb.EventFromStruct(msg):
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (a *GatewayAdapter) GetPurchaseHistory(ctx context.Context) ([]models.PurchaseEvent, error) {
	resp, err := a.client.GetPurchaseHistory(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, a.mapError(err)
	}
	return storepb.EventsFromStruct(resp), nil
}

func (a *GatewayAdapter) FinishTransaction(ctx context.Context, event models.PurchaseEvent, consume bool) error {
	_, err := a.client.FinishTransaction(ctx, storepb.FinishRequest(event.TransactionID, consume))
	return a.mapError(err)
}

func (a *GatewayAdapter) Close() error {
	return a.conn.Close()
}
