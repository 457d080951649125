package types

// PaymentStatus is the outcome recorded in payment history
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// BillingReason mirrors the provider invoice billing_reason
type BillingReason string

const (
	BillingReasonSubscriptionCreate BillingReason = "subscription_create"
	BillingReasonSubscriptionCycle  BillingReason = "subscription_cycle"
	BillingReasonSubscriptionUpdate BillingReason = "subscription_update"
	BillingReasonManual             BillingReason = "manual"
)

// IsRenewal reports whether the invoice opens a new billing period after the
// first one. Proration and manual invoices do not.
func (r BillingReason) IsRenewal() bool {
	return r == BillingReasonSubscriptionCycle
}

// ListsAllLines reports whether the invoice bills every price on the
// subscription. Proration and manual invoices list only the changed lines.
func (r BillingReason) ListsAllLines() bool {
	return r == BillingReasonSubscriptionCreate || r == BillingReasonSubscriptionCycle
}
