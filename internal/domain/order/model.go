package order

import (
	"time"

	"github.com/flexprice/reconciler/internal/types"
	"github.com/flexprice/reconciler/internal/validator"
)

// Order is the durable record of one checkout transaction
type Order struct {
	// ID is the internal identifier, prefixed with ord_
	ID string `db:"id" json:"id"`
	// UserID owns the entitlements granted by this order
	UserID string `db:"user_id" json:"user_id" validate:"required"`
	// ExternalSessionID is the provider checkout session and doubles as the de-duplication key
	ExternalSessionID string `db:"external_session_id" json:"external_session_id" validate:"required"`
	// PaymentIntentID is the provider payment intent, when the session charged one
	PaymentIntentID *string `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	// TotalAmount in minor currency units as supplied by the provider
	TotalAmount int64 `db:"total_amount" json:"total_amount" validate:"gte=0"`
	// Currency is the lowercase ISO code
	Currency string `db:"currency" json:"currency"`
	// Status is pending until the entitlement for the order was granted
	Status types.OrderStatus `db:"status" json:"status"`

	PromoCode      *string `db:"promo_code" json:"promo_code,omitempty"`
	ReferralSource *string `db:"referral_source" json:"referral_source,omitempty"`
	CampaignName   *string `db:"campaign_name" json:"campaign_name,omitempty"`

	Metadata  types.Metadata `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields required before an order is inserted
func (o *Order) Validate() error {
	return validator.ValidateRequest(o)
}

// IsPaid reports whether the order's entitlement was already granted
func (o *Order) IsPaid() bool {
	return o.Status == types.OrderStatusPaid
}

// OrderItem is one purchased line of an order
type OrderItem struct {
	ID      string `db:"id" json:"id"`
	OrderID string `db:"order_id" json:"order_id" validate:"required"`
	// ProductID is the catalog product and is always set
	ProductID string `db:"product_id" json:"product_id" validate:"required"`
	// PriceID is the catalog price. Items resolved by product key leave it nil.
	PriceID        *string `db:"price_id" json:"price_id,omitempty"`
	Quantity       int64   `db:"quantity" json:"quantity" validate:"gt=0"`
	Amount         int64   `db:"amount" json:"amount"`
	Currency       string  `db:"currency" json:"currency"`
	IsSubscription bool    `db:"is_subscription" json:"is_subscription"`
	SubscriptionID *string `db:"subscription_id" json:"subscription_id,omitempty"`
	// ActivationDeadline is set for purchases that must be activated within a window
	ActivationDeadline *time.Time     `db:"activation_deadline" json:"activation_deadline,omitempty"`
	Metadata           types.Metadata `db:"metadata" json:"metadata,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
}

// Validate checks the fields required before an item is inserted
func (i *OrderItem) Validate() error {
	return validator.ValidateRequest(i)
}

// ItemAttributes are the caller supplied fields of a new order item.
// Quantity defaults to 1 when zero.
type ItemAttributes struct {
	Quantity           int64
	Currency           string
	IsSubscription     bool
	SubscriptionID     *string
	ActivationDeadline *time.Time
	Metadata           types.Metadata
}
