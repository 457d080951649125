package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/reconciler/internal/domain/subscription"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/types"
)

var _ interfaces.PaymentProvider = (*FakeProvider)(nil)

// FakeProvider is an in-memory billing provider. Subscriptions created through
// it honour idempotency keys the way the real API does.
type FakeProvider struct {
	mu            sync.Mutex
	subscriptions map[string]subscription.Snapshot
	byKey         map[string]string
	lineItems     map[string][]interfaces.CheckoutLineItem
	invoicePrices map[string][]string

	// Created records every CreateSubscription call that reached the provider
	Created []interfaces.CreateSubscriptionParams
	// Err, when set, fails every call
	Err error
}

func NewFakeProvider() *FakeProvider {
	p := &FakeProvider{}
	p.Clear()
	return p
}

// AddSubscription seeds a provider subscription
func (p *FakeProvider) AddSubscription(snap subscription.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions[snap.ExternalSubscriptionID] = snap
}

// SetLineItems seeds the line items of a checkout session
func (p *FakeProvider) SetLineItems(sessionID string, items ...interfaces.CheckoutLineItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lineItems[sessionID] = items
}

// SetInvoicePrices seeds the full price list of an invoice
func (p *FakeProvider) SetInvoicePrices(invoiceID string, priceIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invoicePrices[invoiceID] = priceIDs
}

func (p *FakeProvider) RetrieveSubscription(_ context.Context, externalSubscriptionID string) (*subscription.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	snap, ok := p.subscriptions[externalSubscriptionID]
	if !ok {
		return nil, ierr.NewError("no such subscription").
			WithHintf("Subscription %s does not exist", externalSubscriptionID).
			Mark(ierr.ErrNotFound)
	}
	return &snap, nil
}

func (p *FakeProvider) CreateSubscription(_ context.Context, params interfaces.CreateSubscriptionParams) (*subscription.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	if id, ok := p.byKey[params.IdempotencyKey]; ok && params.IdempotencyKey != "" {
		snap := p.subscriptions[id]
		return &snap, nil
	}

	now := time.Now().UTC()
	trialEnd := params.TrialEnd
	snap := subscription.Snapshot{
		ExternalSubscriptionID: types.GenerateUUIDWithPrefix("sub"),
		ExternalCustomerID:     params.CustomerID,
		Status:                 types.SubscriptionStatusTrialing,
		PriceIDs:               []string{params.PriceID},
		CurrentPeriodStart:     now,
		CurrentPeriodEnd:       trialEnd,
		TrialStart:             &now,
		TrialEnd:               &trialEnd,
		Metadata:               params.Metadata,
	}
	p.subscriptions[snap.ExternalSubscriptionID] = snap
	p.byKey[params.IdempotencyKey] = snap.ExternalSubscriptionID
	p.Created = append(p.Created, params)
	return &snap, nil
}

func (p *FakeProvider) ListInvoicePriceIDs(_ context.Context, externalInvoiceID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.invoicePrices[externalInvoiceID], nil
}

func (p *FakeProvider) ListCheckoutLineItems(_ context.Context, sessionID string) ([]interfaces.CheckoutLineItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.lineItems[sessionID], nil
}

// Subscriptions returns the number of distinct provider subscriptions
func (p *FakeProvider) Subscriptions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscriptions)
}

func (p *FakeProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions = make(map[string]subscription.Snapshot)
	p.byKey = make(map[string]string)
	p.lineItems = make(map[string][]interfaces.CheckoutLineItem)
	p.invoicePrices = make(map[string][]string)
	p.Created = nil
	p.Err = nil
}
