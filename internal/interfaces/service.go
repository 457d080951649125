package interfaces

import (
	"context"
	"time"

	"github.com/flexprice/reconciler/internal/domain/subscription"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/shopspring/decimal"
)

// CreateSubscriptionParams describes a provider subscription created on behalf
// of a customer after a one-time purchase
type CreateSubscriptionParams struct {
	CustomerID string
	PriceID    string
	TrialEnd   time.Time
	Metadata   types.Metadata
	// IdempotencyKey makes a replayed create return the original subscription
	IdempotencyKey string
}

// CheckoutLineItem is one line of a completed checkout session
type CheckoutLineItem struct {
	PriceID  string
	Quantity int64
	Amount   int64
	Currency string
}

// PaymentProvider is the outbound API of the billing provider
type PaymentProvider interface {
	RetrieveSubscription(ctx context.Context, externalSubscriptionID string) (*subscription.Snapshot, error)
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*subscription.Snapshot, error)
	// ListInvoicePriceIDs returns every price billed by the invoice, following pagination
	ListInvoicePriceIDs(ctx context.Context, externalInvoiceID string) ([]string, error)
	ListCheckoutLineItems(ctx context.Context, sessionID string) ([]CheckoutLineItem, error)
}

// IdentityProvider provisions accounts for guest purchasers
type IdentityProvider interface {
	// CreateUser creates a user with a verified email and returns its id
	CreateUser(ctx context.Context, email string) (string, error)
	// CreateSignInLink issues a passwordless sign-in link redirecting to redirectTo
	CreateSignInLink(ctx context.Context, email, redirectTo string) (string, error)
}

// PurchaseGrant is a one-time token grant recorded against a purchase
type PurchaseGrant struct {
	UserID         string
	Amount         decimal.Decimal
	Source         string
	IdempotencyKey string
	Metadata       types.Metadata
}

// TokenLedger is the external token balance service. Every call is idempotent
// on its key.
type TokenLedger interface {
	// GrantForPrice grants the tokens configured for a recurring price for one billing cycle
	GrantForPrice(ctx context.Context, userID, priceID, subscriptionID string, cycle int) error
	RecordPurchase(ctx context.Context, grant PurchaseGrant) error
	GrantTrial(ctx context.Context, userID, idempotencyKey string) error
}
