package postgres

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
	"github.com/flexprice/reconciler/internal/types"
)

type catalogRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCatalogRepository(db *postgres.DB, logger *logger.Logger) catalog.Repository {
	return &catalogRepository{db: db, logger: logger}
}

const (
	tierColumns  = `id, tier_type, name, billing_cycle, external_price_id, storage_quota_gb, shared_seats`
	priceColumns = `id, product_id, external_price_id, amount, currency, active, metadata`
)

func (r *catalogRepository) GetTierByType(ctx context.Context, tierType string) (*catalog.MembershipTier, error) {
	query := `SELECT ` + tierColumns + ` FROM membership_tiers WHERE tier_type = $1`

	var t catalog.MembershipTier
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &t, query, tierType); err != nil {
		return nil, readError(err, "membership tier", map[string]any{"tier_type": tierType})
	}
	return &t, nil
}

func (r *catalogRepository) GetTierByPriceID(ctx context.Context, externalPriceID string) (*catalog.MembershipTier, error) {
	query := `SELECT ` + tierColumns + ` FROM membership_tiers WHERE external_price_id = $1`

	var t catalog.MembershipTier
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &t, query, externalPriceID); err != nil {
		return nil, readError(err, "membership tier", map[string]any{"external_price_id": externalPriceID})
	}
	return &t, nil
}

func (r *catalogRepository) GetPriceByExternalID(ctx context.Context, externalPriceID string) (*catalog.Price, error) {
	query := `SELECT ` + priceColumns + ` FROM prices WHERE external_price_id = $1`

	var p catalog.Price
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, externalPriceID); err != nil {
		return nil, readError(err, "price", map[string]any{"external_price_id": externalPriceID})
	}
	return &p, nil
}

func (r *catalogRepository) GetProductByKey(ctx context.Context, key string) (*catalog.Product, error) {
	query := `SELECT id, key, name FROM products WHERE key = $1`

	var p catalog.Product
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, key); err != nil {
		return nil, readError(err, "product", map[string]any{"product_key": key})
	}
	return &p, nil
}

// GetPackByKey returns the active price whose metadata defines the pack
func (r *catalogRepository) GetPackByKey(ctx context.Context, packKey string) (*catalog.Price, error) {
	query := `SELECT ` + priceColumns + ` FROM prices
		WHERE active = TRUE AND metadata->>'` + types.PriceMetadataPackKey + `' = $1
		ORDER BY external_price_id LIMIT 1`

	var p catalog.Price
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, packKey); err != nil {
		return nil, readError(err, "pack", map[string]any{"pack_key": packKey})
	}
	return &p, nil
}

// ListStorageAddonPrices returns every price marked as a storage add-on,
// active or not, so removed add-ons are still recognised when pruning
func (r *catalogRepository) ListStorageAddonPrices(ctx context.Context) ([]*catalog.Price, error) {
	query := `SELECT ` + priceColumns + ` FROM prices
		WHERE lower(metadata->>'` + types.PriceMetadataAddonKey + `') LIKE $1
		ORDER BY external_price_id`

	var prices []*catalog.Price
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &prices, query, types.StorageAddonKeyPrefix+"%"); err != nil {
		return nil, readError(err, "storage add-on prices", map[string]any{})
	}
	return prices, nil
}
