package catalog

import (
	"context"
)

// Repository reads the product catalog. The engine never writes it.
type Repository interface {
	GetTierByType(ctx context.Context, tierType string) (*MembershipTier, error)
	GetTierByPriceID(ctx context.Context, externalPriceID string) (*MembershipTier, error)
	GetPriceByExternalID(ctx context.Context, externalPriceID string) (*Price, error)
	GetProductByKey(ctx context.Context, key string) (*Product, error)
	GetPackByKey(ctx context.Context, packKey string) (*Price, error)
	ListStorageAddonPrices(ctx context.Context) ([]*Price, error)
}
