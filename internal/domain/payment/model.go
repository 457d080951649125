package payment

import (
	"time"

	"github.com/flexprice/reconciler/internal/types"
)

// Record is one entry of a user's payment history, derived from an invoice event
type Record struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	// SubscriptionID is the local subscription the invoice belongs to
	SubscriptionID    string              `db:"subscription_id" json:"subscription_id"`
	ExternalInvoiceID string              `db:"external_invoice_id" json:"external_invoice_id"`
	PaymentIntentID   *string             `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	Amount            int64               `db:"amount" json:"amount"`
	Currency          string              `db:"currency" json:"currency"`
	Status            types.PaymentStatus `db:"status" json:"status"`
	BillingReason     types.BillingReason `db:"billing_reason" json:"billing_reason"`
	Description       string              `db:"description" json:"description"`
	PaidAt            *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
}
