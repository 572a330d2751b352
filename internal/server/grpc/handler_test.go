package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/catalog"
	"github.com/dmitrijs2005/creditkeeper/internal/client/storefront"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/dmitrijs2005/creditkeeper/internal/metrics"
	"github.com/dmitrijs2005/creditkeeper/internal/server/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type harness struct {
	adapter *storefront.GatewayAdapter
	server  *GRPCServer
	reg     *prometheus.Registry
}

func newHarness(t *testing.T, opts gateway.Options) *harness {
	t.Helper()
	reg := prometheus.NewRegistry()
	store := gateway.NewStore(catalog.Default(), opts, logging.Nop())
	s := NewGRPCServer("bufnet", logging.Nop(), store, metrics.New(reg))

	lis := bufconn.Listen(1 << 20)
	srv := s.newServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	a, err := storefront.NewGatewayAdapter("passthrough:///bufnet", logging.Nop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return &harness{adapter: a, server: s, reg: reg}
}

func TestGateway_PurchaseLifecycle(t *testing.T) {
	h := newHarness(t, gateway.Options{SigningKey: []byte("k"), Environment: "sandbox"})
	ctx := context.Background()

	require.NoError(t, h.adapter.Connect(ctx))

	products, err := h.adapter.GetProducts(ctx, []string{"credits_10", "unknown", "credits_100"})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "credits_10", products[0].ID)
	assert.EqualValues(t, 100, products[1].Credits)

	ev, err := h.adapter.Purchase(ctx, "credits_50")
	require.NoError(t, err)
	assert.Equal(t, "credits_50", ev.ProductID)
	assert.NotEmpty(t, ev.SignedTransaction)
	assert.NotEmpty(t, ev.Receipt)

	history, err := h.adapter.GetPurchaseHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ev.TransactionID, history[0].TransactionID)

	require.NoError(t, h.adapter.FinishTransaction(ctx, ev, true))
	history, err = h.adapter.GetPurchaseHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.Equal(t, 1.0, gatewayCalls(t, h.reg, "Purchase", "ok"))
}

func TestGateway_ErrorsMapToSentinels(t *testing.T) {
	h := newHarness(t, gateway.Options{CancelEvery: 1})
	ctx := context.Background()

	_, err := h.adapter.Purchase(ctx, "credits_10")
	assert.ErrorIs(t, err, common.ErrUserCancelled)

	_, err = h.adapter.Purchase(ctx, "credits_3")
	assert.ErrorIs(t, err, common.ErrUnknownProduct)
}

func TestGateway_FinishRequiresID(t *testing.T) {
	h := newHarness(t, gateway.Options{})
	_, err := h.server.FinishTransaction(context.Background(), &structpb.Struct{})
	assert.Error(t, err)
}

func TestGateway_UpdatesStream(t *testing.T) {
	h := newHarness(t, gateway.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := h.adapter.Updates(ctx)
	require.NoError(t, err)

	// the server subscribes asynchronously, so purchases made before that are not streamed
	require.Eventually(t, func() bool {
		if _, err := h.adapter.Purchase(context.Background(), "credits_10"); err != nil {
			return false
		}
		select {
		case got := <-updates:
			return got.ProductID == "credits_10"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	for range updates {
	}
}

func gatewayCalls(t *testing.T, reg *prometheus.Registry, method, result string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "creditkeeper_gateway_calls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["method"] == method && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
