package service

import (
	"context"
	"strings"

	"github.com/flexprice/reconciler/internal/domain/order"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
)

// OrderLedger records checkout transactions exactly once per session and
// their purchased lines exactly once per price or product.
type OrderLedger interface {
	// EnsureOrder returns the order of the session, inserting draft when none
	// exists. The first committed order wins and later drafts are discarded.
	EnsureOrder(ctx context.Context, sessionID string, draft *order.Order) (*order.Order, bool, error)
	MarkOrderPaid(ctx context.Context, o *order.Order) error
	// CompensateOrder deletes an order this call created after its item failed
	CompensateOrder(ctx context.Context, o *order.Order, created bool)

	// EnsureOrderItemByPrice returns nil without error when the price is unknown
	EnsureOrderItemByPrice(ctx context.Context, orderID, externalPriceID string, amount int64, attrs order.ItemAttributes) (*order.OrderItem, error)
	// EnsureOrderItemByProductKey returns nil without error when the product is unknown
	EnsureOrderItemByProductKey(ctx context.Context, orderID, productKey string, amount int64, attrs order.ItemAttributes) (*order.OrderItem, error)
	// EnsureOrderItem tries the price first and falls back to the product key
	EnsureOrderItem(ctx context.Context, orderID, externalPriceID, productKey string, amount int64, attrs order.ItemAttributes) (*order.OrderItem, error)
}

type orderLedger struct {
	ServiceParams
}

func NewOrderLedger(params ServiceParams) OrderLedger {
	return &orderLedger{ServiceParams: params}
}

func (s *orderLedger) EnsureOrder(ctx context.Context, sessionID string, draft *order.Order) (*order.Order, bool, error) {
	if sessionID == "" {
		return nil, false, ierr.NewError("session id is required").
			WithHint("Orders are keyed by checkout session").
			Mark(ierr.ErrValidation)
	}

	return ensure(ctx, "order",
		func(ctx context.Context) (*order.Order, error) {
			return s.OrderRepo.GetBySessionID(ctx, sessionID)
		},
		func(ctx context.Context) (*order.Order, error) {
			now := s.now()
			o := *draft
			o.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER)
			o.ExternalSessionID = sessionID
			o.Currency = strings.ToLower(lo.CoalesceOrEmpty(o.Currency, s.Config.Billing.DefaultCurrency))
			if o.Status == "" {
				o.Status = types.OrderStatusPending
			}
			o.CreatedAt = now
			o.UpdatedAt = now
			if err := o.Validate(); err != nil {
				return nil, err
			}
			if err := s.OrderRepo.Create(ctx, &o); err != nil {
				return nil, err
			}
			s.Logger.WithContext(ctx).Infow("created order",
				"order_id", o.ID,
				"session_id", sessionID,
				"user_id", o.UserID,
				"total_amount", o.TotalAmount,
			)
			return &o, nil
		},
	)
}

func (s *orderLedger) MarkOrderPaid(ctx context.Context, o *order.Order) error {
	if o.IsPaid() {
		return nil
	}
	if err := s.OrderRepo.UpdateStatus(ctx, o.ID, types.OrderStatusPaid); err != nil {
		return err
	}
	o.Status = types.OrderStatusPaid
	return nil
}

func (s *orderLedger) CompensateOrder(ctx context.Context, o *order.Order, created bool) {
	if o == nil || !created {
		return
	}
	log := s.Logger.WithContext(ctx).With("order_id", o.ID, "session_id", o.ExternalSessionID)
	if err := s.OrderRepo.Delete(ctx, o.ID); err != nil {
		log.Errorw("failed to delete order after item failure", "error", err)
		s.Sentry.CaptureException(ctx, err, map[string]string{"step": "compensate_order"})
		return
	}
	log.Warnw("deleted order after item failure")
}

func (s *orderLedger) EnsureOrderItemByPrice(ctx context.Context, orderID, externalPriceID string, amount int64, attrs order.ItemAttributes) (*order.OrderItem, error) {
	if externalPriceID == "" {
		return nil, nil
	}
	price, err := s.CatalogRepo.GetPriceByExternalID(ctx, externalPriceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.WithContext(ctx).Warnw("unknown price for order item",
				"order_id", orderID,
				"price_id", externalPriceID,
			)
			return nil, nil
		}
		return nil, err
	}

	item, _, err := ensure(ctx, "order_item",
		func(ctx context.Context) (*order.OrderItem, error) {
			return s.OrderItemRepo.GetByPrice(ctx, orderID, price.ID)
		},
		func(ctx context.Context) (*order.OrderItem, error) {
			return s.insertItem(ctx, orderID, price.ProductID, lo.ToPtr(price.ID), amount, lo.CoalesceOrEmpty(attrs.Currency, price.Currency), attrs)
		},
	)
	return item, err
}

func (s *orderLedger) EnsureOrderItemByProductKey(ctx context.Context, orderID, productKey string, amount int64, attrs order.ItemAttributes) (*order.OrderItem, error) {
	if productKey == "" {
		return nil, nil
	}
	product, err := s.CatalogRepo.GetProductByKey(ctx, productKey)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.WithContext(ctx).Warnw("unknown product for order item",
				"order_id", orderID,
				"product_key", productKey,
			)
			return nil, nil
		}
		return nil, err
	}

	item, _, err := ensure(ctx, "order_item",
		func(ctx context.Context) (*order.OrderItem, error) {
			return s.OrderItemRepo.GetByProduct(ctx, orderID, product.ID)
		},
		func(ctx context.Context) (*order.OrderItem, error) {
			return s.insertItem(ctx, orderID, product.ID, nil, amount, attrs.Currency, attrs)
		},
	)
	return item, err
}

func (s *orderLedger) EnsureOrderItem(ctx context.Context, orderID, externalPriceID, productKey string, amount int64, attrs order.ItemAttributes) (*order.OrderItem, error) {
	item, err := s.EnsureOrderItemByPrice(ctx, orderID, externalPriceID, amount, attrs)
	if err != nil || item != nil {
		return item, err
	}
	return s.EnsureOrderItemByProductKey(ctx, orderID, productKey, amount, attrs)
}

func (s *orderLedger) insertItem(ctx context.Context, orderID, productID string, priceID *string, amount int64, currency string, attrs order.ItemAttributes) (*order.OrderItem, error) {
	item := &order.OrderItem{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_ITEM),
		OrderID:            orderID,
		ProductID:          productID,
		PriceID:            priceID,
		Quantity:           lo.Ternary(attrs.Quantity > 0, attrs.Quantity, 1),
		Amount:             amount,
		Currency:           strings.ToLower(lo.CoalesceOrEmpty(currency, s.Config.Billing.DefaultCurrency)),
		IsSubscription:     attrs.IsSubscription,
		SubscriptionID:     attrs.SubscriptionID,
		ActivationDeadline: attrs.ActivationDeadline,
		Metadata:           attrs.Metadata,
		CreatedAt:          s.now(),
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.OrderItemRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.Logger.WithContext(ctx).Infow("created order item",
		"order_item_id", item.ID,
		"order_id", orderID,
		"product_id", productID,
		"price_id", lo.FromPtr(priceID),
	)
	return item, nil
}
