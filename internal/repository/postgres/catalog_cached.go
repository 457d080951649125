package postgres

import (
	"context"

	"github.com/flexprice/reconciler/internal/cache"
	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/logger"
)

// cachedCatalogRepository serves catalog reads from the process cache. The
// catalog is managed outside the engine, so entries only expire by TTL.
type cachedCatalogRepository struct {
	catalog.Repository
	cache  cache.Cache
	logger *logger.Logger
}

func NewCachedCatalogRepository(repo catalog.Repository, c cache.Cache, logger *logger.Logger) catalog.Repository {
	return &cachedCatalogRepository{Repository: repo, cache: c, logger: logger}
}

func cached[T any](ctx context.Context, c cache.Cache, name, key string, load func() (T, error)) (T, error) {
	span := cache.StartCacheSpan(ctx, "catalog", name, map[string]interface{}{"key": key})
	if v, ok := c.Get(ctx, key); ok {
		if typed, ok := v.(T); ok {
			cache.FinishSpan(span, true)
			return typed, nil
		}
	}
	cache.FinishSpan(span, false)

	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(ctx, key, v, 0)
	return v, nil
}

func (r *cachedCatalogRepository) GetTierByType(ctx context.Context, tierType string) (*catalog.MembershipTier, error) {
	key := cache.GenerateKey(cache.PrefixMembershipTier, "type", tierType)
	return cached(ctx, r.cache, "tier_by_type", key, func() (*catalog.MembershipTier, error) {
		return r.Repository.GetTierByType(ctx, tierType)
	})
}

func (r *cachedCatalogRepository) GetTierByPriceID(ctx context.Context, externalPriceID string) (*catalog.MembershipTier, error) {
	key := cache.GenerateKey(cache.PrefixMembershipTier, "price", externalPriceID)
	return cached(ctx, r.cache, "tier_by_price", key, func() (*catalog.MembershipTier, error) {
		return r.Repository.GetTierByPriceID(ctx, externalPriceID)
	})
}

func (r *cachedCatalogRepository) GetPriceByExternalID(ctx context.Context, externalPriceID string) (*catalog.Price, error) {
	key := cache.GenerateKey(cache.PrefixCatalogPrice, externalPriceID)
	return cached(ctx, r.cache, "price", key, func() (*catalog.Price, error) {
		return r.Repository.GetPriceByExternalID(ctx, externalPriceID)
	})
}

func (r *cachedCatalogRepository) GetProductByKey(ctx context.Context, key string) (*catalog.Product, error) {
	cacheKey := cache.GenerateKey(cache.PrefixCatalogProduct, key)
	return cached(ctx, r.cache, "product", cacheKey, func() (*catalog.Product, error) {
		return r.Repository.GetProductByKey(ctx, key)
	})
}

func (r *cachedCatalogRepository) GetPackByKey(ctx context.Context, packKey string) (*catalog.Price, error) {
	key := cache.GenerateKey(cache.PrefixCatalogPack, packKey)
	return cached(ctx, r.cache, "pack", key, func() (*catalog.Price, error) {
		return r.Repository.GetPackByKey(ctx, packKey)
	})
}

func (r *cachedCatalogRepository) ListStorageAddonPrices(ctx context.Context) ([]*catalog.Price, error) {
	key := cache.GenerateKey(cache.PrefixStorageAddon, "all")
	return cached(ctx, r.cache, "storage_addons", key, func() ([]*catalog.Price, error) {
		return r.Repository.ListStorageAddonPrices(ctx)
	})
}
