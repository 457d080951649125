package postgres

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/subscription"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

const subscriptionColumns = `id, user_id, membership_tier_id, external_customer_id, external_subscription_id,
	price_id, status, current_period_start, current_period_end, trial_start, trial_end,
	cancel_at_period_end, canceled_at, order_id, order_item_id, created_at, updated_at`

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id,
			user_id,
			membership_tier_id,
			external_customer_id,
			external_subscription_id,
			price_id,
			status,
			current_period_start,
			current_period_end,
			trial_start,
			trial_end,
			cancel_at_period_end,
			canceled_at,
			order_id,
			order_item_id,
			created_at,
			updated_at
		) VALUES (
			:id,
			:user_id,
			:membership_tier_id,
			:external_customer_id,
			:external_subscription_id,
			:price_id,
			:status,
			:current_period_start,
			:current_period_end,
			:trial_start,
			:trial_end,
			:cancel_at_period_end,
			:canceled_at,
			:order_id,
			:order_item_id,
			:created_at,
			:updated_at
		)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, sub); err != nil {
		return writeError(err, "subscription", map[string]any{
			"external_subscription_id": sub.ExternalSubscriptionID,
		})
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	var sub subscription.Subscription
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, id); err != nil {
		return nil, readError(err, "subscription", map[string]any{"subscription_id": id})
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByExternalID(ctx context.Context, externalSubscriptionID string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE external_subscription_id = $1`

	var sub subscription.Subscription
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, externalSubscriptionID); err != nil {
		return nil, readError(err, "subscription", map[string]any{
			"external_subscription_id": externalSubscriptionID,
		})
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			status = :status,
			price_id = :price_id,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			trial_start = :trial_start,
			trial_end = :trial_end,
			cancel_at_period_end = :cancel_at_period_end,
			canceled_at = :canceled_at,
			updated_at = :updated_at
		WHERE id = :id
	`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, sub)
	if err != nil {
		return writeError(err, "subscription", map[string]any{"subscription_id": sub.ID})
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	return notFoundIfNoRowsAffected(affected, "subscription", map[string]any{"subscription_id": sub.ID})
}

func (r *subscriptionRepository) ListByCustomer(ctx context.Context, externalCustomerID string) ([]*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE external_customer_id = $1 ORDER BY created_at DESC`

	var subs []*subscription.Subscription
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &subs, query, externalCustomerID); err != nil {
		return nil, readError(err, "subscriptions", map[string]any{
			"external_customer_id": externalCustomerID,
		})
	}
	return subs, nil
}
