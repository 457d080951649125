package postgres

import (
	"context"
	"time"

	"github.com/flexprice/reconciler/internal/domain/order"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
	"github.com/flexprice/reconciler/internal/types"
)

type orderRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewOrderRepository(db *postgres.DB, logger *logger.Logger) order.Repository {
	return &orderRepository{db: db, logger: logger}
}

const orderColumns = `id, user_id, external_session_id, payment_intent_id, total_amount, currency,
	status, promo_code, referral_source, campaign_name, metadata, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	query := `
		INSERT INTO orders (
			id,
			user_id,
			external_session_id,
			payment_intent_id,
			total_amount,
			currency,
			status,
			promo_code,
			referral_source,
			campaign_name,
			metadata,
			created_at,
			updated_at
		) VALUES (
			:id,
			:user_id,
			:external_session_id,
			:payment_intent_id,
			:total_amount,
			:currency,
			:status,
			:promo_code,
			:referral_source,
			:campaign_name,
			:metadata,
			:created_at,
			:updated_at
		)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, o); err != nil {
		return writeError(err, "order", map[string]any{
			"external_session_id": o.ExternalSessionID,
		})
	}
	return nil
}

func (r *orderRepository) GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE external_session_id = $1`

	var o order.Order
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &o, query, sessionID); err != nil {
		return nil, readError(err, "order", map[string]any{"external_session_id": sessionID})
	}
	return &o, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status types.OrderStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return writeError(err, "order", map[string]any{"order_id": id})
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update order status").
			Mark(ierr.ErrDatabase)
	}
	return notFoundIfNoRowsAffected(affected, "order", map[string]any{"order_id": id})
}

// Delete removes an order and its items. Only used to undo an order whose
// item could not be recorded.
func (r *orderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return writeError(err, "order item", map[string]any{"order_id": id})
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
			return writeError(err, "order", map[string]any{"order_id": id})
		}
		return nil
	})
}

type orderItemRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewOrderItemRepository(db *postgres.DB, logger *logger.Logger) order.ItemRepository {
	return &orderItemRepository{db: db, logger: logger}
}

const orderItemColumns = `id, order_id, product_id, price_id, quantity, amount, currency,
	is_subscription, subscription_id, activation_deadline, metadata, created_at`

func (r *orderItemRepository) Create(ctx context.Context, item *order.OrderItem) error {
	query := `
		INSERT INTO order_items (
			id,
			order_id,
			product_id,
			price_id,
			quantity,
			amount,
			currency,
			is_subscription,
			subscription_id,
			activation_deadline,
			metadata,
			created_at
		) VALUES (
			:id,
			:order_id,
			:product_id,
			:price_id,
			:quantity,
			:amount,
			:currency,
			:is_subscription,
			:subscription_id,
			:activation_deadline,
			:metadata,
			:created_at
		)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, item); err != nil {
		return writeError(err, "order item", map[string]any{
			"order_id":   item.OrderID,
			"product_id": item.ProductID,
		})
	}
	return nil
}

func (r *orderItemRepository) GetByPrice(ctx context.Context, orderID, priceID string) (*order.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 AND price_id = $2`

	var item order.OrderItem
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &item, query, orderID, priceID); err != nil {
		return nil, readError(err, "order item", map[string]any{
			"order_id": orderID,
			"price_id": priceID,
		})
	}
	return &item, nil
}

func (r *orderItemRepository) GetByProduct(ctx context.Context, orderID, productID string) (*order.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items
		WHERE order_id = $1 AND product_id = $2 AND price_id IS NULL`

	var item order.OrderItem
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &item, query, orderID, productID); err != nil {
		return nil, readError(err, "order item", map[string]any{
			"order_id":   orderID,
			"product_id": productID,
		})
	}
	return &item, nil
}

func (r *orderItemRepository) ListByOrder(ctx context.Context, orderID string) ([]*order.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at`

	var items []*order.OrderItem
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &items, query, orderID); err != nil {
		return nil, readError(err, "order items", map[string]any{"order_id": orderID})
	}
	return items, nil
}

func (r *orderItemRepository) SetSubscription(ctx context.Context, id, subscriptionID string) error {
	query := `UPDATE order_items SET subscription_id = $1 WHERE id = $2`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, subscriptionID, id)
	if err != nil {
		return writeError(err, "order item", map[string]any{"order_item_id": id})
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to link order item to subscription").
			Mark(ierr.ErrDatabase)
	}
	return notFoundIfNoRowsAffected(affected, "order item", map[string]any{"order_item_id": id})
}
