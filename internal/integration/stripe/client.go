package stripe

import (
	"context"

	"github.com/flexprice/reconciler/internal/config"
	"github.com/flexprice/reconciler/internal/domain/subscription"
	"github.com/flexprice/reconciler/internal/domain/webhook"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
)

// Client is the outbound provider API used by the reconciler
type Client struct {
	sc     *stripe.Client
	logger *logger.Logger
}

var _ interfaces.PaymentProvider = (*Client)(nil)

// NewClient creates a provider client from the configured secret key
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	if cfg.Stripe.SecretKey == "" {
		logger.Warnw("stripe secret key is not configured, provider calls will fail")
	}
	return &Client{
		sc:     stripe.NewClient(cfg.Stripe.SecretKey, nil),
		logger: logger,
	}
}

// RetrieveSubscription fetches a subscription with its items
func (c *Client) RetrieveSubscription(ctx context.Context, externalSubscriptionID string) (*subscription.Snapshot, error) {
	sub, err := c.sc.V1Subscriptions.Retrieve(ctx, externalSubscriptionID, &stripe.SubscriptionRetrieveParams{})
	if err != nil {
		return nil, providerError(err, "retrieve subscription", map[string]any{
			"subscription_id": externalSubscriptionID,
		})
	}
	return toSnapshot(sub), nil
}

// CreateSubscription creates a trialing subscription. The idempotency key
// makes a redelivered event return the subscription created the first time.
func (c *Client) CreateSubscription(ctx context.Context, p interfaces.CreateSubscriptionParams) (*subscription.Snapshot, error) {
	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(p.CustomerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(p.PriceID)},
		},
		TrialEnd: stripe.Int64(p.TrialEnd.Unix()),
		Metadata: p.Metadata,
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	sub, err := c.sc.V1Subscriptions.Create(ctx, params)
	if err != nil {
		return nil, providerError(err, "create subscription", map[string]any{
			"customer_id": p.CustomerID,
			"price_id":    p.PriceID,
		})
	}

	c.logger.Infow("created provider subscription",
		"subscription_id", sub.ID,
		"customer_id", p.CustomerID,
		"price_id", p.PriceID,
		"trial_end", p.TrialEnd,
	)
	return toSnapshot(sub), nil
}

// ListInvoicePriceIDs lists every line of an invoice, following pagination
func (c *Client) ListInvoicePriceIDs(ctx context.Context, externalInvoiceID string) ([]string, error) {
	params := &stripe.InvoiceLineItemListParams{
		Invoice: stripe.String(externalInvoiceID),
	}

	var priceIDs []string
	for line, err := range c.sc.V1InvoiceLineItems.List(ctx, params) {
		if err != nil {
			return nil, providerError(err, "list invoice lines", map[string]any{
				"invoice_id": externalInvoiceID,
			})
		}
		if line.Pricing != nil && line.Pricing.PriceDetails != nil && line.Pricing.PriceDetails.Price != "" {
			priceIDs = append(priceIDs, line.Pricing.PriceDetails.Price)
		}
	}
	return lo.Uniq(priceIDs), nil
}

// ListCheckoutLineItems lists the purchased lines of a checkout session
func (c *Client) ListCheckoutLineItems(ctx context.Context, sessionID string) ([]interfaces.CheckoutLineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}

	var items []interfaces.CheckoutLineItem
	for li, err := range c.sc.V1CheckoutSessions.ListLineItems(ctx, params) {
		if err != nil {
			return nil, providerError(err, "list checkout line items", map[string]any{
				"session_id": sessionID,
			})
		}
		if li.Price == nil {
			continue
		}
		items = append(items, interfaces.CheckoutLineItem{
			PriceID:  li.Price.ID,
			Quantity: li.Quantity,
			Amount:   li.AmountTotal,
			Currency: string(li.Currency),
		})
	}
	return items, nil
}

func toSnapshot(sub *stripe.Subscription) *subscription.Snapshot {
	snap := &subscription.Snapshot{
		ExternalSubscriptionID: sub.ID,
		Status:                 types.SubscriptionStatus(sub.Status),
		TrialStart:             webhook.UnixTimePtr(lo.ToPtr(sub.TrialStart)),
		TrialEnd:               webhook.UnixTimePtr(lo.ToPtr(sub.TrialEnd)),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		CanceledAt:             webhook.UnixTimePtr(lo.ToPtr(sub.CanceledAt)),
		Metadata:               types.Metadata(sub.Metadata),
	}
	if sub.Customer != nil {
		snap.ExternalCustomerID = sub.Customer.ID
	}
	if sub.Items != nil {
		for i, item := range sub.Items.Data {
			if i == 0 {
				snap.CurrentPeriodStart = webhook.UnixTime(item.CurrentPeriodStart)
				snap.CurrentPeriodEnd = webhook.UnixTime(item.CurrentPeriodEnd)
			}
			if item.Price != nil && item.Price.ID != "" {
				snap.PriceIDs = append(snap.PriceIDs, item.Price.ID)
			}
		}
	}
	return snap
}

func providerError(err error, op string, details map[string]any) error {
	var stripeErr *stripe.Error
	if ierr.As(err, &stripeErr) {
		details["stripe_code"] = string(stripeErr.Code)
		details["stripe_type"] = string(stripeErr.Type)
		details["status_code"] = stripeErr.HTTPStatusCode
	}
	return ierr.WithError(err).
		WithHintf("Payment provider failed to %s", op).
		WithReportableDetails(details).
		Mark(ierr.ErrHTTPClient)
}
