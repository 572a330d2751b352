package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/catalog"
	"github.com/dmitrijs2005/creditkeeper/internal/client/receipt"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-signing-key")

func newTestStore(opts Options) *Store {
	return NewStore(catalog.Default(), opts, logging.Nop())
}

func TestStore_PurchaseSignsTransaction(t *testing.T) {
	s := newTestStore(Options{SigningKey: testKey, Environment: "sandbox"})

	ev, err := s.Purchase(context.Background(), "credits_10")
	require.NoError(t, err)
	assert.NotEmpty(t, ev.TransactionID)
	assert.NotEmpty(t, ev.Receipt)
	assert.Equal(t, "sandbox", ev.Environment)

	st, err := receipt.DecodeSignedTransaction(ev.SignedTransaction, testKey)
	require.NoError(t, err)
	assert.Equal(t, ev.TransactionID, st.TransactionID)
	assert.Equal(t, "credits_10", st.ProductID)
	assert.Equal(t, ev.PurchasedAt.UnixMilli(), st.PurchaseDate)

	_, err = receipt.DecodeSignedTransaction(ev.SignedTransaction, []byte("other"))
	assert.ErrorIs(t, err, common.ErrReceiptInvalid)
}

func TestStore_PurchaseWithoutKeyIsUnsigned(t *testing.T) {
	s := newTestStore(Options{})
	ev, err := s.Purchase(context.Background(), "credits_50")
	require.NoError(t, err)
	assert.Empty(t, ev.SignedTransaction)
}

func TestStore_UnknownProduct(t *testing.T) {
	s := newTestStore(Options{})
	_, err := s.Purchase(context.Background(), "credits_7")
	assert.ErrorIs(t, err, common.ErrUnknownProduct)
	assert.Empty(t, s.Unfinished())
}

func TestStore_CancelEvery(t *testing.T) {
	s := newTestStore(Options{CancelEvery: 2})
	ctx := context.Background()

	_, err := s.Purchase(ctx, "credits_10")
	require.NoError(t, err)
	_, err = s.Purchase(ctx, "credits_10")
	assert.ErrorIs(t, err, common.ErrUserCancelled)
	_, err = s.Purchase(ctx, "credits_10")
	require.NoError(t, err)

	assert.Len(t, s.Unfinished(), 2)
}

func TestStore_FinishRemovesFromUnfinished(t *testing.T) {
	s := newTestStore(Options{})
	ctx := context.Background()

	a, err := s.Purchase(ctx, "credits_10")
	require.NoError(t, err)
	b, err := s.Purchase(ctx, "credits_100")
	require.NoError(t, err)

	require.NoError(t, s.Finish(ctx, a.TransactionID, true))
	require.NoError(t, s.Finish(ctx, a.TransactionID, true))

	left := s.Unfinished()
	require.Len(t, left, 1)
	assert.Equal(t, b.TransactionID, left[0].TransactionID)

	assert.ErrorIs(t, s.Finish(ctx, "missing", true), common.ErrorNotFound)
}

func TestStore_SubscribeReceivesPurchases(t *testing.T) {
	s := newTestStore(Options{})
	updates, unsubscribe := s.Subscribe()

	ev, err := s.Purchase(context.Background(), "credits_10")
	require.NoError(t, err)

	select {
	case got := <-updates:
		assert.Equal(t, ev.TransactionID, got.TransactionID)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	unsubscribe()
	unsubscribe()
	_, ok := <-updates
	assert.False(t, ok)

	_, err = s.Purchase(context.Background(), "credits_10")
	require.NoError(t, err)
}

func TestStore_ReceiptListsEarlierTransactions(t *testing.T) {
	s := newTestStore(Options{})
	ctx := context.Background()

	first, err := s.Purchase(ctx, "credits_10")
	require.NoError(t, err)
	second, err := s.Purchase(ctx, "credits_50")
	require.NoError(t, err)

	txs, ok := s.receiptTransactions(second.Receipt)
	require.True(t, ok)
	require.Len(t, txs, 2)
	assert.Equal(t, first.TransactionID, txs[0].TransactionID)

	txs, ok = s.receiptTransactions(first.Receipt)
	require.True(t, ok)
	assert.Len(t, txs, 1)

	_, ok = s.receiptTransactions("nope")
	assert.False(t, ok)
}
