package testutil

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/storage"
	"github.com/samber/lo"
)

// InMemoryStorageGrantStore implements storage.Repository with the unique
// (subscription, price) and order item keys
type InMemoryStorageGrantStore struct {
	*InMemoryStore[storage.Grant]
}

func NewInMemoryStorageGrantStore() *InMemoryStorageGrantStore {
	return &InMemoryStorageGrantStore{
		InMemoryStore: NewInMemoryStore[storage.Grant](),
	}
}

func (s *InMemoryStorageGrantStore) Create(ctx context.Context, g *storage.Grant) error {
	return s.CreateUnique(ctx, g.ID, *g, func(existing storage.Grant) bool {
		if g.SubscriptionID != nil && lo.FromPtr(existing.SubscriptionID) == *g.SubscriptionID {
			return existing.ExternalPriceID == g.ExternalPriceID
		}
		return g.OrderItemID != nil && lo.FromPtr(existing.OrderItemID) == *g.OrderItemID
	})
}

func (s *InMemoryStorageGrantStore) ListAddonsBySubscription(ctx context.Context, subscriptionID string) ([]*storage.Grant, error) {
	grants := s.List(ctx, func(g storage.Grant) bool {
		return g.StorageAddon && lo.FromPtr(g.SubscriptionID) == subscriptionID
	}, func(a, b storage.Grant) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return lo.ToSlicePtr(grants), nil
}

func (s *InMemoryStorageGrantStore) GetBySubscriptionPrice(ctx context.Context, subscriptionID, externalPriceID string) (*storage.Grant, error) {
	g, err := s.Find(ctx, func(g storage.Grant) bool {
		return lo.FromPtr(g.SubscriptionID) == subscriptionID && g.ExternalPriceID == externalPriceID
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *InMemoryStorageGrantStore) GetByOrderItem(ctx context.Context, orderItemID string) (*storage.Grant, error) {
	g, err := s.Find(ctx, func(g storage.Grant) bool {
		return lo.FromPtr(g.OrderItemID) == orderItemID
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *InMemoryStorageGrantStore) DeleteByIDs(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// AddonPriceIDs returns the add-on prices granted for a subscription
func (s *InMemoryStorageGrantStore) AddonPriceIDs(ctx context.Context, subscriptionID string) []string {
	grants, _ := s.ListAddonsBySubscription(ctx, subscriptionID)
	return lo.Map(grants, func(g *storage.Grant, _ int) string { return g.ExternalPriceID })
}
