package types

// SubscriptionStatus mirrors the provider subscription status. Values the
// engine does not branch on are stored verbatim.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// IsTerminal reports whether no further lifecycle update may change the status
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCanceled
}

// BillingCycle is the renewal cadence of a membership tier
type BillingCycle string

const (
	BillingCycleAnnual      BillingCycle = "annual"
	BillingCycleTwentyEight BillingCycle = "28day"
)
