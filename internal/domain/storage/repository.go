package storage

import (
	"context"
)

// Repository persists storage grants. Create returns ErrAlreadyExists on a
// duplicate (subscription, price) or order item.
type Repository interface {
	Create(ctx context.Context, grant *Grant) error
	ListAddonsBySubscription(ctx context.Context, subscriptionID string) ([]*Grant, error)
	GetBySubscriptionPrice(ctx context.Context, subscriptionID, externalPriceID string) (*Grant, error)
	GetByOrderItem(ctx context.Context, orderItemID string) (*Grant, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}
