package testutil

import (
	"context"
	"time"

	"github.com/flexprice/reconciler/internal/domain/order"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
)

// InMemoryOrderStore implements order.Repository with the unique session key
type InMemoryOrderStore struct {
	*InMemoryStore[order.Order]
	items *InMemoryOrderItemStore
}

// NewInMemoryOrderStore creates an order store. Delete cascades into items
// when an item store is given.
func NewInMemoryOrderStore(items *InMemoryOrderItemStore) *InMemoryOrderStore {
	return &InMemoryOrderStore{
		InMemoryStore: NewInMemoryStore[order.Order](),
		items:         items,
	}
}

func (s *InMemoryOrderStore) Create(ctx context.Context, o *order.Order) error {
	return s.CreateUnique(ctx, o.ID, *o, func(existing order.Order) bool {
		return existing.ExternalSessionID == o.ExternalSessionID
	})
}

func (s *InMemoryOrderStore) GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	o, err := s.Find(ctx, func(o order.Order) bool { return o.ExternalSessionID == sessionID })
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *InMemoryOrderStore) UpdateStatus(ctx context.Context, id string, status types.OrderStatus) error {
	o, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return s.Update(ctx, id, o)
}

func (s *InMemoryOrderStore) Delete(ctx context.Context, id string) error {
	if s.items != nil {
		for _, item := range s.items.List(ctx, func(i order.OrderItem) bool { return i.OrderID == id }, nil) {
			_ = s.items.InMemoryStore.Delete(ctx, item.ID)
		}
	}
	return s.InMemoryStore.Delete(ctx, id)
}

// All returns every stored order
func (s *InMemoryOrderStore) All(ctx context.Context) []order.Order {
	return s.List(ctx, nil, nil)
}

// InMemoryOrderItemStore implements order.ItemRepository with the unique
// (order, price) and (order, product without price) keys
type InMemoryOrderItemStore struct {
	*InMemoryStore[order.OrderItem]
	// FailCreate makes Create return this error when set
	FailCreate error
}

func NewInMemoryOrderItemStore() *InMemoryOrderItemStore {
	return &InMemoryOrderItemStore{
		InMemoryStore: NewInMemoryStore[order.OrderItem](),
	}
}

func (s *InMemoryOrderItemStore) Create(ctx context.Context, item *order.OrderItem) error {
	if s.FailCreate != nil {
		return s.FailCreate
	}
	return s.CreateUnique(ctx, item.ID, *item, func(existing order.OrderItem) bool {
		if existing.OrderID != item.OrderID {
			return false
		}
		if item.PriceID != nil {
			return lo.FromPtr(existing.PriceID) == *item.PriceID
		}
		return existing.PriceID == nil && existing.ProductID == item.ProductID
	})
}

func (s *InMemoryOrderItemStore) GetByPrice(ctx context.Context, orderID, priceID string) (*order.OrderItem, error) {
	item, err := s.Find(ctx, func(i order.OrderItem) bool {
		return i.OrderID == orderID && lo.FromPtr(i.PriceID) == priceID
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *InMemoryOrderItemStore) GetByProduct(ctx context.Context, orderID, productID string) (*order.OrderItem, error) {
	item, err := s.Find(ctx, func(i order.OrderItem) bool {
		return i.OrderID == orderID && i.ProductID == productID && i.PriceID == nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *InMemoryOrderItemStore) ListByOrder(ctx context.Context, orderID string) ([]*order.OrderItem, error) {
	items := s.List(ctx, func(i order.OrderItem) bool { return i.OrderID == orderID }, func(a, b order.OrderItem) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return lo.ToSlicePtr(items), nil
}

func (s *InMemoryOrderItemStore) SetSubscription(ctx context.Context, id, subscriptionID string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	item.SubscriptionID = lo.ToPtr(subscriptionID)
	return s.Update(ctx, id, item)
}

// All returns every stored item
func (s *InMemoryOrderItemStore) All(ctx context.Context) []order.OrderItem {
	return s.List(ctx, nil, nil)
}
