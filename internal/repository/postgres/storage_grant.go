package postgres

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/storage"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
	"github.com/lib/pq"
)

type storageGrantRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewStorageGrantRepository(db *postgres.DB, logger *logger.Logger) storage.Repository {
	return &storageGrantRepository{db: db, logger: logger}
}

const storageGrantColumns = `id, user_id, quota_gb, subscription_id, order_item_id, storage_addon,
	external_price_id, pack_key, quantity, metadata, created_at`

func (r *storageGrantRepository) Create(ctx context.Context, g *storage.Grant) error {
	query := `
		INSERT INTO storage_grants (
			id,
			user_id,
			quota_gb,
			subscription_id,
			order_item_id,
			storage_addon,
			external_price_id,
			pack_key,
			quantity,
			metadata,
			created_at
		) VALUES (
			:id,
			:user_id,
			:quota_gb,
			:subscription_id,
			:order_item_id,
			:storage_addon,
			:external_price_id,
			:pack_key,
			:quantity,
			:metadata,
			:created_at
		)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, g); err != nil {
		return writeError(err, "storage grant", map[string]any{
			"user_id":           g.UserID,
			"external_price_id": g.ExternalPriceID,
		})
	}
	return nil
}

func (r *storageGrantRepository) ListAddonsBySubscription(ctx context.Context, subscriptionID string) ([]*storage.Grant, error) {
	query := `SELECT ` + storageGrantColumns + ` FROM storage_grants
		WHERE subscription_id = $1 AND storage_addon = TRUE
		ORDER BY created_at`

	var grants []*storage.Grant
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &grants, query, subscriptionID); err != nil {
		return nil, readError(err, "storage grants", map[string]any{"subscription_id": subscriptionID})
	}
	return grants, nil
}

func (r *storageGrantRepository) GetBySubscriptionPrice(ctx context.Context, subscriptionID, externalPriceID string) (*storage.Grant, error) {
	query := `SELECT ` + storageGrantColumns + ` FROM storage_grants
		WHERE subscription_id = $1 AND external_price_id = $2`

	var g storage.Grant
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &g, query, subscriptionID, externalPriceID); err != nil {
		return nil, readError(err, "storage grant", map[string]any{
			"subscription_id":   subscriptionID,
			"external_price_id": externalPriceID,
		})
	}
	return &g, nil
}

func (r *storageGrantRepository) GetByOrderItem(ctx context.Context, orderItemID string) (*storage.Grant, error) {
	query := `SELECT ` + storageGrantColumns + ` FROM storage_grants WHERE order_item_id = $1`

	var g storage.Grant
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &g, query, orderItemID); err != nil {
		return nil, readError(err, "storage grant", map[string]any{"order_item_id": orderItemID})
	}
	return &g, nil
}

func (r *storageGrantRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM storage_grants WHERE id = ANY($1)`
	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return writeError(err, "storage grant", map[string]any{"ids": ids})
	}
	return nil
}
