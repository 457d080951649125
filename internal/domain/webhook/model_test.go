package webhook

import (
	"encoding/json"
	"testing"
	"time"

	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCheckoutSession(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "cs_1",
		"mode": "payment",
		"amount_total": 2500,
		"currency": "usd",
		"customer_details": {"email": " A@B.com "},
		"metadata": {"purchaseType": "token_pack", "tokensAmount": "1000"}
	}`)

	s, err := DecodeCheckoutSession(raw)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.Equal(t, types.PurchaseTypeTokenPack, s.PurchaseType())
	assert.Equal(t, "a@b.com", s.Email())
	assert.Equal(t, int64(2500), s.Amount(49900))
	assert.Equal(t, "1000", s.Metadata.Lookup(types.MetadataKeyTokensAmount))
}

func TestDecodeCheckoutSessionWithoutAmount(t *testing.T) {
	s, err := DecodeCheckoutSession(json.RawMessage(`{"id":"cs_2","mode":"payment"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(49900), s.Amount(49900))
	assert.Equal(t, "", s.Email())
}

func TestDecodeRejectsInvalidPayloads(t *testing.T) {
	_, err := DecodeCheckoutSession(json.RawMessage(`{"id":`))
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	_, err = DecodeSubscription(json.RawMessage(`{"status":"active"}`))
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestSubscriptionSnapshotReadsItemPeriods(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "sub_ext_1",
		"customer": "cus_1",
		"status": "trialing",
		"trial_end": 1700000000,
		"items": {"data": [
			{"price": {"id": "price_a"}, "current_period_start": 1690000000, "current_period_end": 1700000000},
			{"price": {"id": "price_b"}}
		]}
	}`)

	s, err := DecodeSubscription(raw)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, []string{"price_a", "price_b"}, snap.PriceIDs)
	assert.Equal(t, "price_a", snap.PrimaryPriceID())
	assert.Equal(t, time.Unix(1690000000, 0).UTC(), snap.CurrentPeriodStart)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), snap.CurrentPeriodEnd)
	require.NotNil(t, snap.TrialEnd)
	assert.Equal(t, time.UTC, snap.TrialEnd.Location())
	assert.Nil(t, snap.TrialStart)
	assert.Nil(t, snap.CanceledAt)
}

func TestInvoiceSubscriptionAndPrices(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "in_1",
		"parent": {"subscription_details": {"subscription": "sub_ext_1"}},
		"billing_reason": "subscription_cycle",
		"lines": {"data": [
			{"pricing": {"price_details": {"price": "price_b"}}},
			{"price": {"id": "price_c"}},
			{"price": {"id": "price_c"}}
		]}
	}`)

	inv, err := DecodeInvoice(raw)
	require.NoError(t, err)
	assert.Equal(t, "sub_ext_1", inv.SubscriptionID())
	assert.ElementsMatch(t, []string{"price_b", "price_c"}, inv.LinePriceIDs())
	assert.True(t, types.BillingReason(inv.BillingReason).IsRenewal())
}
