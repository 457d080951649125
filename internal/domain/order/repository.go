package order

import (
	"context"

	"github.com/flexprice/reconciler/internal/types"
)

// Repository persists orders. Create returns ErrAlreadyExists when another
// order holds the same external session id; lookups return ErrNotFound.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status types.OrderStatus) error
	Delete(ctx context.Context, id string) error
}

// ItemRepository persists order items. Create returns ErrAlreadyExists on a
// duplicate (order, price), or (order, product) for items without a price.
type ItemRepository interface {
	Create(ctx context.Context, item *OrderItem) error
	GetByPrice(ctx context.Context, orderID, priceID string) (*OrderItem, error)
	GetByProduct(ctx context.Context, orderID, productID string) (*OrderItem, error)
	ListByOrder(ctx context.Context, orderID string) ([]*OrderItem, error)
	SetSubscription(ctx context.Context, id, subscriptionID string) error
}
