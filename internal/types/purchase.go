package types

import (
	"strings"
)

// CheckoutMode mirrors the provider checkout session mode
type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModeSetup        CheckoutMode = "setup"
)

// PurchaseType is the closed set of entitlement strategies a completed
// checkout can map to. It is decoded once from checkout metadata.
type PurchaseType string

const (
	PurchaseTypeSubscription                PurchaseType = "subscription"
	PurchaseTypeTokenPack                   PurchaseType = "token_pack"
	PurchaseTypeFlexPack                    PurchaseType = "flex_pack"
	PurchaseTypeIntensive                   PurchaseType = "intensive"
	PurchaseTypeCombinedIntensiveContinuity PurchaseType = "combined_intensive_continuity"
	PurchaseTypeUnknown                     PurchaseType = "unknown"
)

// Checkout metadata keys. Each has a camelCase alias written by older clients.
const (
	MetadataKeyUserID            = "user_id"
	MetadataKeyTierType          = "tier_type"
	MetadataKeyPurchaseType      = "purchase_type"
	MetadataKeyProductType       = "product_type"
	MetadataKeyTokensAmount      = "tokens_amount"
	MetadataKeyPackID            = "pack_id"
	MetadataKeyPackKey           = "pack_key"
	MetadataKeyProductKey        = "product_key"
	MetadataKeyQuantity          = "quantity"
	MetadataKeyPaymentPlan       = "payment_plan"
	MetadataKeyIntensivePlan     = "intensive_payment_plan"
	MetadataKeyContinuityPlan    = "continuity_plan"
	MetadataKeyContinuityPriceID = "continuity_price_id"
	MetadataKeyPlanType          = "plan_type"
	MetadataKeyPromoCode         = "promo_code"
	MetadataKeyReferralSource    = "referral_source"
	MetadataKeyCampaignName      = "campaign_name"
	MetadataKeyIsFreeIntensive   = "is_free_intensive"
	MetadataKeyCustomerEmail     = "customer_email"
)

// MetadataAlias returns the camelCase spelling of a snake_case metadata key
func MetadataAlias(key string) string {
	parts := strings.Split(key, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

// Lookup reads a metadata key by its snake_case name or camelCase alias
func (m Metadata) Lookup(key string) string {
	return m.Get(key, MetadataAlias(key))
}

// ParsePurchaseType decodes the purchase discriminator of a checkout session.
// Subscription-mode sessions without an explicit type are recurring tiers.
func ParsePurchaseType(mode CheckoutMode, metadata Metadata) PurchaseType {
	if metadata.Lookup(MetadataKeyProductType) == string(PurchaseTypeCombinedIntensiveContinuity) {
		return PurchaseTypeCombinedIntensiveContinuity
	}

	switch PurchaseType(strings.ToLower(metadata.Lookup(MetadataKeyPurchaseType))) {
	case PurchaseTypeSubscription:
		return PurchaseTypeSubscription
	case PurchaseTypeTokenPack:
		return PurchaseTypeTokenPack
	case PurchaseTypeFlexPack:
		return PurchaseTypeFlexPack
	case PurchaseTypeIntensive:
		return PurchaseTypeIntensive
	case PurchaseTypeCombinedIntensiveContinuity:
		return PurchaseTypeCombinedIntensiveContinuity
	case "":
		if mode == CheckoutModeSubscription {
			return PurchaseTypeSubscription
		}
	}
	return PurchaseTypeUnknown
}

// IsIntensive reports whether the purchase runs the intensive onboarding flow
func (p PurchaseType) IsIntensive() bool {
	return p == PurchaseTypeIntensive || p == PurchaseTypeCombinedIntensiveContinuity
}

// PaymentPlan is the installment plan of an intensive purchase
type PaymentPlan string

const (
	PaymentPlanFull     PaymentPlan = "full"
	PaymentPlanTwoPay   PaymentPlan = "2pay"
	PaymentPlanThreePay PaymentPlan = "3pay"
)

// ParsePaymentPlan falls back to a single full payment
func ParsePaymentPlan(s string) PaymentPlan {
	switch PaymentPlan(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentPlanTwoPay:
		return PaymentPlanTwoPay
	case PaymentPlanThreePay:
		return PaymentPlanThreePay
	default:
		return PaymentPlanFull
	}
}

// Installments returns the number of installments of the plan
func (p PaymentPlan) Installments() int {
	switch p {
	case PaymentPlanTwoPay:
		return 2
	case PaymentPlanThreePay:
		return 3
	default:
		return 1
	}
}

// PlanType selects how many seats a plan grants
type PlanType string

const (
	PlanTypeSolo      PlanType = "solo"
	PlanTypeHousehold PlanType = "household"
)

// ParsePlanType falls back to solo
func ParsePlanType(s string) PlanType {
	if PlanType(strings.ToLower(strings.TrimSpace(s))) == PlanTypeHousehold {
		return PlanTypeHousehold
	}
	return PlanTypeSolo
}

// GuestUserID is the placeholder user id written by guest checkouts
const GuestUserID = "guest"

// IsGuestUserID reports whether id does not name a real account
func IsGuestUserID(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || strings.EqualFold(id, GuestUserID)
}
