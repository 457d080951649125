package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePurchaseType(t *testing.T) {
	tests := []struct {
		name     string
		mode     CheckoutMode
		metadata Metadata
		want     PurchaseType
	}{
		{"explicit token pack", CheckoutModePayment, Metadata{"purchase_type": "token_pack"}, PurchaseTypeTokenPack},
		{"camel case alias", CheckoutModePayment, Metadata{"purchaseType": "FLEX_PACK"}, PurchaseTypeFlexPack},
		{"combined product type wins", CheckoutModePayment, Metadata{"purchase_type": "intensive", "productType": "combined_intensive_continuity"}, PurchaseTypeCombinedIntensiveContinuity},
		{"subscription mode without metadata", CheckoutModeSubscription, nil, PurchaseTypeSubscription},
		{"payment mode without metadata", CheckoutModePayment, Metadata{}, PurchaseTypeUnknown},
		{"unrecognized value", CheckoutModeSubscription, Metadata{"purchase_type": "gift"}, PurchaseTypeUnknown},
		{"intensive", CheckoutModePayment, Metadata{"purchase_type": "intensive"}, PurchaseTypeIntensive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePurchaseType(tt.mode, tt.metadata))
		})
	}
}

func TestMetadataAlias(t *testing.T) {
	assert.Equal(t, "purchaseType", MetadataAlias("purchase_type"))
	assert.Equal(t, "continuityPriceId", MetadataAlias("continuity_price_id"))
	assert.Equal(t, "quantity", MetadataAlias("quantity"))

	m := Metadata{"tokensAmount": "500", "user_id": " "}
	assert.Equal(t, "500", m.Lookup(MetadataKeyTokensAmount))
	assert.Equal(t, "", m.Lookup(MetadataKeyUserID))
}

func TestParsePaymentPlan(t *testing.T) {
	assert.Equal(t, PaymentPlanFull, ParsePaymentPlan(""))
	assert.Equal(t, PaymentPlanTwoPay, ParsePaymentPlan(" 2PAY "))
	assert.Equal(t, PaymentPlanThreePay, ParsePaymentPlan("3pay"))
	assert.Equal(t, PaymentPlanFull, ParsePaymentPlan("weekly"))
	assert.Equal(t, 3, PaymentPlanThreePay.Installments())
	assert.Equal(t, 1, PaymentPlanFull.Installments())
}

func TestGuestAndPlanType(t *testing.T) {
	assert.True(t, IsGuestUserID(""))
	assert.True(t, IsGuestUserID("Guest"))
	assert.False(t, IsGuestUserID("u1"))
	assert.Equal(t, PlanTypeHousehold, ParsePlanType("Household"))
	assert.Equal(t, PlanTypeSolo, ParsePlanType("family"))
}

func TestIsIntensive(t *testing.T) {
	assert.True(t, PurchaseTypeIntensive.IsIntensive())
	assert.True(t, PurchaseTypeCombinedIntensiveContinuity.IsIntensive())
	assert.False(t, PurchaseTypeTokenPack.IsIntensive())
	assert.False(t, PurchaseTypeUnknown.IsIntensive())
}

func TestMetadataMergeCopies(t *testing.T) {
	base := Metadata{"purchaseType": "token_pack", "pack_id": "p1"}
	merged := base.Merge(Metadata{"purchase_type": "token_pack", "pack_id": "p2"})

	assert.Equal(t, "p2", merged["pack_id"])
	assert.Equal(t, "token_pack", merged["purchase_type"])
	assert.Equal(t, "p1", base["pack_id"])
	assert.NotContains(t, base, "purchase_type")
}

func TestBillingReasonListsAllLines(t *testing.T) {
	assert.True(t, BillingReasonSubscriptionCreate.ListsAllLines())
	assert.True(t, BillingReasonSubscriptionCycle.ListsAllLines())
	assert.False(t, BillingReasonSubscriptionUpdate.ListsAllLines())
	assert.False(t, BillingReasonManual.ListsAllLines())
}
