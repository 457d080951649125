package subscription

import (
	"context"
)

// Repository persists subscriptions
type Repository interface {
	// Create returns ErrAlreadyExists when the external subscription id is taken
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByExternalID(ctx context.Context, externalSubscriptionID string) (*Subscription, error)
	// Update writes the mutable provider fields of an existing row
	Update(ctx context.Context, sub *Subscription) error
	ListByCustomer(ctx context.Context, externalCustomerID string) ([]*Subscription, error)
}
