package receipt

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// SignedTransaction is the payload of a signed store transaction.
type SignedTransaction struct {
	jwt.RegisteredClaims
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId,omitempty"`
	ProductID             string `json:"productId"`
	PurchaseDate          int64  `json:"purchaseDate"`
	Quantity              int    `json:"quantity,omitempty"`
	Environment           string `json:"environment,omitempty"`
}

// DecodeSignedTransaction parses a compact JWS. With a key the HS256
// signature is verified; without one the payload is read unverified.
func DecodeSignedTransaction(jws string, key []byte) (*SignedTransaction, error) {
	claims := &SignedTransaction{}

	if len(key) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(jws, claims); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrReceiptInvalid, err)
		}
	} else {
		token, err := jwt.ParseWithClaims(jws, claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrReceiptInvalid, err)
		}
		if !token.Valid {
			return nil, fmt.Errorf("%w: signature not valid", common.ErrReceiptInvalid)
		}
	}

	if claims.TransactionID == "" || claims.ProductID == "" {
		return nil, fmt.Errorf("%w: signed transaction without id or product", common.ErrReceiptInvalid)
	}
	return claims, nil
}

// SignTransaction produces the HS256 JWS that DecodeSignedTransaction
// verifies with the same key.
func SignTransaction(tx SignedTransaction, key []byte) (string, error) {
	if tx.IssuedAt == nil {
		tx.IssuedAt = jwt.NewNumericDate(time.Now())
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tx).SignedString(key)
}

func (s *SignedTransaction) ToModel() models.ReceiptTransaction {
	q := s.Quantity
	if q <= 0 {
		q = 1
	}
	return models.ReceiptTransaction{
		TransactionID:         s.TransactionID,
		OriginalTransactionID: s.OriginalTransactionID,
		ProductID:             s.ProductID,
		PurchasedAt:           time.UnixMilli(s.PurchaseDate).UTC(),
		Quantity:              q,
	}
}
