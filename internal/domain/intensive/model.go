package intensive

import (
	"time"

	"github.com/flexprice/reconciler/internal/types"
)

// Checklist tracks onboarding of one intensive purchase
type Checklist struct {
	ID          string                `db:"id" json:"id"`
	OrderItemID string                `db:"order_item_id" json:"order_item_id"`
	UserID      string                `db:"user_id" json:"user_id"`
	Status      types.ChecklistStatus `db:"status" json:"status"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
}
