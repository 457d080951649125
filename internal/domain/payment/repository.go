package payment

import (
	"context"

	"github.com/flexprice/reconciler/internal/types"
)

// Repository persists payment history
type Repository interface {
	// Create returns ErrAlreadyExists for a duplicate (invoice, status)
	Create(ctx context.Context, record *Record) error
	GetByInvoice(ctx context.Context, externalInvoiceID string, status types.PaymentStatus) (*Record, error)
	CountSucceededBySubscription(ctx context.Context, subscriptionID string) (int, error)
}
