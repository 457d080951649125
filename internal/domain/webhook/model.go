package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/flexprice/reconciler/internal/domain/subscription"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
)

// Event is a verified provider event. Data holds the raw event object and is
// decoded by the handler for the event type.
type Event struct {
	ID      string                 `json:"id"`
	Type    types.WebhookEventType `json:"type"`
	Created time.Time              `json:"created"`
	Data    json.RawMessage        `json:"data"`
}

// CheckoutSession is the subset of a checkout session the engine reads
type CheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Customer        string `json:"customer"`
	Subscription    string `json:"subscription"`
	PaymentIntent   string `json:"payment_intent"`
	AmountTotal     *int64 `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata types.Metadata `json:"metadata"`
}

// CheckoutMode returns the typed session mode
func (s *CheckoutSession) CheckoutMode() types.CheckoutMode {
	return types.CheckoutMode(strings.ToLower(s.Mode))
}

// PurchaseType decodes the purchase branch from mode and metadata
func (s *CheckoutSession) PurchaseType() types.PurchaseType {
	return types.ParsePurchaseType(s.CheckoutMode(), s.Metadata)
}

// Email returns the purchaser email from customer details, the session or metadata
func (s *CheckoutSession) Email() string {
	email := lo.Ternary(s.CustomerDetails.Email != "", s.CustomerDetails.Email, s.CustomerEmail)
	if email == "" {
		email = s.Metadata.Lookup(types.MetadataKeyCustomerEmail)
	}
	return strings.ToLower(strings.TrimSpace(email))
}

// Amount returns the session total or the fallback when the provider sent none
func (s *CheckoutSession) Amount(fallback int64) int64 {
	if s.AmountTotal == nil {
		return fallback
	}
	return *s.AmountTotal
}

type price struct {
	ID string `json:"id"`
}

type subscriptionItem struct {
	Price              price `json:"price"`
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
}

// ProviderSubscription is the subset of a provider subscription the engine reads.
// Newer API versions moved the period bounds from the subscription to its items.
type ProviderSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         *int64 `json:"canceled_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	TrialStart         *int64 `json:"trial_start"`
	TrialEnd           *int64 `json:"trial_end"`
	Items              struct {
		Data []subscriptionItem `json:"data"`
	} `json:"items"`
	Metadata types.Metadata `json:"metadata"`
}

// Snapshot converts the wire object into the reconciler's view
func (s *ProviderSubscription) Snapshot() *subscription.Snapshot {
	start, end := s.CurrentPeriodStart, s.CurrentPeriodEnd
	if len(s.Items.Data) > 0 {
		if start == 0 {
			start = s.Items.Data[0].CurrentPeriodStart
		}
		if end == 0 {
			end = s.Items.Data[0].CurrentPeriodEnd
		}
	}

	return &subscription.Snapshot{
		ExternalSubscriptionID: s.ID,
		ExternalCustomerID:     s.Customer,
		Status:                 types.SubscriptionStatus(s.Status),
		PriceIDs: lo.FilterMap(s.Items.Data, func(item subscriptionItem, _ int) (string, bool) {
			return item.Price.ID, item.Price.ID != ""
		}),
		CurrentPeriodStart: UnixTime(start),
		CurrentPeriodEnd:   UnixTime(end),
		TrialStart:         UnixTimePtr(s.TrialStart),
		TrialEnd:           UnixTimePtr(s.TrialEnd),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CanceledAt:         UnixTimePtr(s.CanceledAt),
		Metadata:           s.Metadata,
	}
}

type invoiceLine struct {
	Price   *price `json:"price"`
	Pricing *struct {
		PriceDetails *struct {
			Price string `json:"price"`
		} `json:"price_details"`
	} `json:"pricing"`
}

func (l invoiceLine) priceID() string {
	if l.Pricing != nil && l.Pricing.PriceDetails != nil && l.Pricing.PriceDetails.Price != "" {
		return l.Pricing.PriceDetails.Price
	}
	if l.Price != nil {
		return l.Price.ID
	}
	return ""
}

// Invoice is the subset of an invoice the engine reads
type Invoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	PaymentIntent     string `json:"payment_intent"`
	AmountPaid        int64  `json:"amount_paid"`
	AmountDue         int64  `json:"amount_due"`
	Currency          string `json:"currency"`
	BillingReason     string `json:"billing_reason"`
	Description       string `json:"description"`
	StatusTransitions struct {
		PaidAt *int64 `json:"paid_at"`
	} `json:"status_transitions"`
	Lines struct {
		Data    []invoiceLine `json:"data"`
		HasMore bool          `json:"has_more"`
	} `json:"lines"`
}

// SubscriptionID returns the provider subscription the invoice bills, if any
func (i *Invoice) SubscriptionID() string {
	if i.Subscription != "" {
		return i.Subscription
	}
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		return i.Parent.SubscriptionDetails.Subscription
	}
	return ""
}

// LinePriceIDs returns the distinct prices of the embedded invoice lines
func (i *Invoice) LinePriceIDs() []string {
	ids := lo.FilterMap(i.Lines.Data, func(l invoiceLine, _ int) (string, bool) {
		id := l.priceID()
		return id, id != ""
	})
	return lo.Uniq(ids)
}

// Customer is the subset of a provider customer the engine reads
type Customer struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Name     string         `json:"name"`
	Metadata types.Metadata `json:"metadata"`
}

// UnixTime converts provider epoch seconds to UTC. Zero stays the zero time.
func UnixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// UnixTimePtr converts an optional epoch to an optional UTC time
func UnixTimePtr(sec *int64) *time.Time {
	if sec == nil || *sec == 0 {
		return nil
	}
	return lo.ToPtr(UnixTime(*sec))
}

// DecodeCheckoutSession decodes a checkout.session.completed object
func DecodeCheckoutSession(raw json.RawMessage) (*CheckoutSession, error) {
	var s CheckoutSession
	if err := decode(raw, &s, "checkout session"); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, missingID("checkout session")
	}
	return &s, nil
}

// DecodeSubscription decodes a customer.subscription.* object
func DecodeSubscription(raw json.RawMessage) (*ProviderSubscription, error) {
	var s ProviderSubscription
	if err := decode(raw, &s, "subscription"); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, missingID("subscription")
	}
	return &s, nil
}

// DecodeInvoice decodes an invoice.* object
func DecodeInvoice(raw json.RawMessage) (*Invoice, error) {
	var i Invoice
	if err := decode(raw, &i, "invoice"); err != nil {
		return nil, err
	}
	if i.ID == "" {
		return nil, missingID("invoice")
	}
	return &i, nil
}

// DecodeCustomer decodes a customer.* object
func DecodeCustomer(raw json.RawMessage) (*Customer, error) {
	var c Customer
	if err := decode(raw, &c, "customer"); err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, missingID("customer")
	}
	return &c, nil
}

func decode(raw json.RawMessage, v any, object string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to decode %s payload", object).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func missingID(object string) error {
	return ierr.NewErrorf("%s payload has no id", object).
		WithHintf("The %s object must carry an id", object).
		Mark(ierr.ErrValidation)
}
