// Package storefront puts the platform store behind one interface. GatewayAdapter
// talks to a store gateway over gRPC; MockAdapter is the in-process demo
// store used when no real store is reachable.
package storefront

import (
	"context"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
)

// Adapter is the store boundary the reconciler drives.
//
// Purchase returns common.ErrUserCancelled when the user backs out of the
// checkout and common.ErrStoreUnavailable when the store cannot be reached.
// Updates delivers asynchronous purchase events until ctx is done or the
// stream breaks, then closes the channel.
type Adapter interface {
	Name() string
	Connect(ctx context.Context) error
	GetProducts(ctx context.Context, productIDs []string) ([]models.Product, error)
	Purchase(ctx context.Context, productID string) (models.PurchaseEvent, error)
	Updates(ctx context.Context) (<-chan models.PurchaseEvent, error)
	GetPurchaseHistory(ctx context.Context) ([]models.PurchaseEvent, error)
	FinishTransaction(ctx context.Context, event models.PurchaseEvent, consume bool) error
	Close() error
}
