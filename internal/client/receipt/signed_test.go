package receipt

import (
	"testing"

	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndDecode_Verified(t *testing.T) {
	key := []byte("gateway-key")
	jws, err := SignTransaction(SignedTransaction{
		TransactionID: "tx-9",
		ProductID:     "credits_50",
		PurchaseDate:  1700000000000,
		Environment:   "Sandbox",
	}, key)
	require.NoError(t, err)

	got, err := DecodeSignedTransaction(jws, key)
	require.NoError(t, err)
	assert.Equal(t, "tx-9", got.TransactionID)
	assert.Equal(t, "credits_50", got.ProductID)

	m := got.ToModel()
	assert.Equal(t, 1, m.Quantity)
	assert.Equal(t, int64(1700000000000), m.PurchasedAt.UnixMilli())
}

func TestDecode_WrongKeyIsInvalid(t *testing.T) {
	jws, err := SignTransaction(SignedTransaction{TransactionID: "tx", ProductID: "p"}, []byte("a"))
	require.NoError(t, err)

	_, err = DecodeSignedTransaction(jws, []byte("b"))
	require.ErrorIs(t, err, common.ErrReceiptInvalid)
}

func TestDecode_UnverifiedWithoutKey(t *testing.T) {
	jws, err := SignTransaction(SignedTransaction{TransactionID: "tx", ProductID: "p"}, []byte("any"))
	require.NoError(t, err)

	got, err := DecodeSignedTransaction(jws, nil)
	require.NoError(t, err)
	assert.Equal(t, "tx", got.TransactionID)
}

func TestDecode_GarbageAndMissingFields(t *testing.T) {
	_, err := DecodeSignedTransaction("not.a.jws", nil)
	require.ErrorIs(t, err, common.ErrReceiptInvalid)

	jws, err := SignTransaction(SignedTransaction{ProductID: "p"}, []byte("k"))
	require.NoError(t, err)
	_, err = DecodeSignedTransaction(jws, []byte("k"))
	require.ErrorIs(t, err, common.ErrReceiptInvalid)
}
