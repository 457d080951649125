package storage

import (
	"time"

	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/flexprice/reconciler/internal/validator"
	"github.com/shopspring/decimal"
)

// Grant is one storage quota allocation held by a user. Add-on grants are
// bound to a subscription price and pruned when the price leaves the subscription.
type Grant struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id" validate:"required"`
	// QuotaGB is the granted quota in gigabytes
	QuotaGB decimal.Decimal `db:"quota_gb" json:"quota_gb"`
	// SubscriptionID is the local subscription for tier and add-on grants
	SubscriptionID *string `db:"subscription_id" json:"subscription_id,omitempty"`
	// OrderItemID is set for one-time pack grants
	OrderItemID *string `db:"order_item_id" json:"order_item_id,omitempty"`
	// StorageAddon marks grants owned by the add-on differ
	StorageAddon    bool           `db:"storage_addon" json:"storage_addon"`
	ExternalPriceID string         `db:"external_price_id" json:"external_price_id"`
	PackKey         string         `db:"pack_key" json:"pack_key"`
	Quantity        int64          `db:"quantity" json:"quantity"`
	Metadata        types.Metadata `db:"metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

func (g *Grant) Validate() error {
	if err := validator.ValidateRequest(g); err != nil {
		return err
	}
	if !g.QuotaGB.IsPositive() {
		return ierr.NewError("storage grant quota must be positive").
			WithHint("Quota must be greater than zero").
			WithReportableDetails(map[string]any{
				"quota_gb": g.QuotaGB.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if g.SubscriptionID == nil && g.OrderItemID == nil {
		return ierr.NewError("storage grant requires a subscription or an order item").
			WithHint("Storage grant must be keyed by a subscription price or an order item").
			Mark(ierr.ErrValidation)
	}
	return nil
}
