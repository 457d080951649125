package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/shopspring/decimal"
)

var _ interfaces.TokenLedger = (*FakeLedger)(nil)

// LedgerEntry is one grant accepted by FakeLedger
type LedgerEntry struct {
	Kind           string
	UserID         string
	PriceID        string
	SubscriptionID string
	Cycle          int
	Amount         decimal.Decimal
	Source         string
	Key            string
}

// FakeLedger records grants and drops replays of a key
type FakeLedger struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	entries []LedgerEntry

	// Err fails every call when set
	Err error
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{seen: make(map[string]struct{})}
}

func (l *FakeLedger) GrantForPrice(_ context.Context, userID, priceID, subscriptionID string, cycle int) error {
	key := fmt.Sprintf("price:%s:%s:%d", subscriptionID, priceID, cycle)
	return l.record(LedgerEntry{
		Kind:           "price",
		UserID:         userID,
		PriceID:        priceID,
		SubscriptionID: subscriptionID,
		Cycle:          cycle,
		Key:            key,
	})
}

func (l *FakeLedger) RecordPurchase(_ context.Context, grant interfaces.PurchaseGrant) error {
	return l.record(LedgerEntry{
		Kind:   "purchase",
		UserID: grant.UserID,
		Amount: grant.Amount,
		Source: grant.Source,
		Key:    grant.IdempotencyKey,
	})
}

func (l *FakeLedger) GrantTrial(_ context.Context, userID, idempotencyKey string) error {
	return l.record(LedgerEntry{
		Kind:   "trial",
		UserID: userID,
		Key:    idempotencyKey,
	})
}

func (l *FakeLedger) record(e LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return l.Err
	}
	if _, ok := l.seen[e.Key]; ok {
		return nil
	}
	l.seen[e.Key] = struct{}{}
	l.entries = append(l.entries, e)
	return nil
}

// Entries returns the accepted grants of one kind
func (l *FakeLedger) Entries(kind string) []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []LedgerEntry
	for _, e := range l.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// PurchasedTokens sums the purchase grants of a user
func (l *FakeLedger) PurchasedTokens(userID string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.Entries("purchase") {
		if e.UserID == userID {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func (l *FakeLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = make(map[string]struct{})
	l.entries = nil
	l.Err = nil
}
