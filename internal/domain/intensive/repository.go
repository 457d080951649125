package intensive

import (
	"context"
)

type Repository interface {
	// Create returns ErrAlreadyExists when the order item already has a checklist
	Create(ctx context.Context, checklist *Checklist) error
	GetByOrderItem(ctx context.Context, orderItemID string) (*Checklist, error)
}
