package testutil

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/payment"
	"github.com/flexprice/reconciler/internal/types"
)

// InMemoryPaymentStore implements payment.Repository with the unique
// (invoice, status) key
type InMemoryPaymentStore struct {
	*InMemoryStore[payment.Record]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[payment.Record](),
	}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, r *payment.Record) error {
	return s.CreateUnique(ctx, r.ID, *r, func(existing payment.Record) bool {
		return existing.ExternalInvoiceID == r.ExternalInvoiceID && existing.Status == r.Status
	})
}

func (s *InMemoryPaymentStore) GetByInvoice(ctx context.Context, externalInvoiceID string, status types.PaymentStatus) (*payment.Record, error) {
	r, err := s.Find(ctx, func(r payment.Record) bool {
		return r.ExternalInvoiceID == externalInvoiceID && r.Status == status
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *InMemoryPaymentStore) CountSucceededBySubscription(ctx context.Context, subscriptionID string) (int, error) {
	return s.Count(ctx, func(r payment.Record) bool {
		return r.SubscriptionID == subscriptionID && r.Status == types.PaymentStatusSucceeded
	}), nil
}
