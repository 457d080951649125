package testutil

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/intensive"
)

// InMemoryChecklistStore implements intensive.Repository
type InMemoryChecklistStore struct {
	*InMemoryStore[intensive.Checklist]
}

func NewInMemoryChecklistStore() *InMemoryChecklistStore {
	return &InMemoryChecklistStore{
		InMemoryStore: NewInMemoryStore[intensive.Checklist](),
	}
}

func (s *InMemoryChecklistStore) Create(ctx context.Context, c *intensive.Checklist) error {
	return s.CreateUnique(ctx, c.ID, *c, func(existing intensive.Checklist) bool {
		return existing.OrderItemID == c.OrderItemID
	})
}

func (s *InMemoryChecklistStore) GetByOrderItem(ctx context.Context, orderItemID string) (*intensive.Checklist, error) {
	c, err := s.Find(ctx, func(c intensive.Checklist) bool { return c.OrderItemID == orderItemID })
	if err != nil {
		return nil, err
	}
	return &c, nil
}
