package testutil

import (
	"context"
	"strings"

	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
)

// InMemoryCatalogStore implements catalog.Repository. Tests seed it with the
// Add helpers.
type InMemoryCatalogStore struct {
	tiers    *InMemoryStore[catalog.MembershipTier]
	prices   *InMemoryStore[catalog.Price]
	products *InMemoryStore[catalog.Product]
}

func NewInMemoryCatalogStore() *InMemoryCatalogStore {
	return &InMemoryCatalogStore{
		tiers:    NewInMemoryStore[catalog.MembershipTier](),
		prices:   NewInMemoryStore[catalog.Price](),
		products: NewInMemoryStore[catalog.Product](),
	}
}

func (s *InMemoryCatalogStore) AddTier(ctx context.Context, t *catalog.MembershipTier) error {
	return s.tiers.Create(ctx, t.ID, *t)
}

func (s *InMemoryCatalogStore) AddPrice(ctx context.Context, p *catalog.Price) error {
	return s.prices.Create(ctx, p.ID, *p)
}

func (s *InMemoryCatalogStore) AddProduct(ctx context.Context, p *catalog.Product) error {
	return s.products.Create(ctx, p.ID, *p)
}

func (s *InMemoryCatalogStore) GetTierByType(ctx context.Context, tierType string) (*catalog.MembershipTier, error) {
	t, err := s.tiers.Find(ctx, func(t catalog.MembershipTier) bool {
		return strings.EqualFold(t.TierType, tierType)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *InMemoryCatalogStore) GetTierByPriceID(ctx context.Context, externalPriceID string) (*catalog.MembershipTier, error) {
	t, err := s.tiers.Find(ctx, func(t catalog.MembershipTier) bool {
		return t.ExternalPriceID == externalPriceID
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *InMemoryCatalogStore) GetPriceByExternalID(ctx context.Context, externalPriceID string) (*catalog.Price, error) {
	p, err := s.prices.Find(ctx, func(p catalog.Price) bool {
		return p.ExternalPriceID == externalPriceID
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *InMemoryCatalogStore) GetProductByKey(ctx context.Context, key string) (*catalog.Product, error) {
	p, err := s.products.Find(ctx, func(p catalog.Product) bool { return p.Key == key })
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *InMemoryCatalogStore) GetPackByKey(ctx context.Context, packKey string) (*catalog.Price, error) {
	p, err := s.prices.Find(ctx, func(p catalog.Price) bool {
		return p.Active && p.Metadata.Get(types.PriceMetadataPackKey) == packKey
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *InMemoryCatalogStore) ListStorageAddonPrices(ctx context.Context) ([]*catalog.Price, error) {
	prices := s.prices.List(ctx, func(p catalog.Price) bool {
		return p.Active && p.IsStorageAddon()
	}, func(a, b catalog.Price) bool {
		return a.ExternalPriceID < b.ExternalPriceID
	})
	return lo.ToSlicePtr(prices), nil
}

// Clear removes every catalog entry
func (s *InMemoryCatalogStore) Clear() {
	s.tiers.Clear()
	s.prices.Clear()
	s.products.Clear()
}
