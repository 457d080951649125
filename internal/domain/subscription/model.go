package subscription

import (
	"time"

	"github.com/flexprice/reconciler/internal/types"
	"github.com/flexprice/reconciler/internal/validator"
)

// Subscription mirrors a provider subscription for one user. Rows are never
// hard deleted; cancellation is a status.
type Subscription struct {
	// ID is the internal identifier, prefixed with sub_
	ID string `db:"id" json:"id"`
	// UserID is the local owner of the subscription
	UserID string `db:"user_id" json:"user_id" validate:"required"`
	// MembershipTierID is the catalog tier the subscription grants, when known
	MembershipTierID *string `db:"membership_tier_id" json:"membership_tier_id,omitempty"`
	// ExternalCustomerID is the provider customer
	ExternalCustomerID string `db:"external_customer_id" json:"external_customer_id"`
	// ExternalSubscriptionID is the provider subscription and is unique
	ExternalSubscriptionID string `db:"external_subscription_id" json:"external_subscription_id" validate:"required"`
	// PriceID is the provider price of the first subscription item
	PriceID string `db:"price_id" json:"price_id"`
	// Status is stored verbatim from the provider
	Status types.SubscriptionStatus `db:"status" json:"status" validate:"required"`

	CurrentPeriodStart time.Time  `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `db:"current_period_end" json:"current_period_end"`
	TrialStart         *time.Time `db:"trial_start" json:"trial_start,omitempty"`
	TrialEnd           *time.Time `db:"trial_end" json:"trial_end,omitempty"`
	CancelAtPeriodEnd  bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CanceledAt         *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`

	// OrderID and OrderItemID link subscriptions created from a one-time purchase
	OrderID     *string `db:"order_id" json:"order_id,omitempty"`
	OrderItemID *string `db:"order_item_id" json:"order_item_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields required before a subscription is inserted
func (s *Subscription) Validate() error {
	return validator.ValidateRequest(s)
}

// IsCanceled reports whether the subscription reached its terminal state
func (s *Subscription) IsCanceled() bool {
	return s.Status.IsTerminal()
}

// Snapshot is the provider-side view of a subscription, already converted to
// local types. It is what the reconciler applies to the local row.
type Snapshot struct {
	ExternalSubscriptionID string
	ExternalCustomerID     string
	Status                 types.SubscriptionStatus
	PriceIDs               []string
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	TrialStart             *time.Time
	TrialEnd               *time.Time
	CancelAtPeriodEnd      bool
	CanceledAt             *time.Time
	Metadata               types.Metadata
}

// PrimaryPriceID returns the price of the first item or empty
func (s *Snapshot) PrimaryPriceID() string {
	if len(s.PriceIDs) == 0 {
		return ""
	}
	return s.PriceIDs[0]
}
