package testutil

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/subscription"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[subscription.Subscription](),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	return s.CreateUnique(ctx, sub.ID, *sub, func(existing subscription.Subscription) bool {
		return existing.ExternalSubscriptionID == sub.ExternalSubscriptionID
	})
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *InMemorySubscriptionStore) GetByExternalID(ctx context.Context, externalSubscriptionID string) (*subscription.Subscription, error) {
	sub, err := s.Find(ctx, func(sub subscription.Subscription) bool {
		return sub.ExternalSubscriptionID == externalSubscriptionID
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	return s.InMemoryStore.Update(ctx, sub.ID, *sub)
}

func (s *InMemorySubscriptionStore) ListByCustomer(ctx context.Context, externalCustomerID string) ([]*subscription.Subscription, error) {
	subs := s.List(ctx, func(sub subscription.Subscription) bool {
		return sub.ExternalCustomerID == externalCustomerID
	}, func(a, b subscription.Subscription) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return lo.ToSlicePtr(subs), nil
}

// ListByUser returns the subscriptions of a user
func (s *InMemorySubscriptionStore) ListByUser(ctx context.Context, userID string) []subscription.Subscription {
	return s.List(ctx, func(sub subscription.Subscription) bool { return sub.UserID == userID }, nil)
}
