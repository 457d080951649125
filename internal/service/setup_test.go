package service

import (
	"encoding/json"
	"time"

	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/domain/subscription"
	"github.com/flexprice/reconciler/internal/domain/webhook"
	"github.com/flexprice/reconciler/internal/testutil"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/shopspring/decimal"
)

const (
	tierContinuity = "vision_pro_28day"
	tierFamily     = "family_annual"

	priceContinuity = "price_vp28"
	priceFamily     = "price_family"
	priceIntensive  = "price_intensive"
	priceTokens     = "price_tokens_1000"
	priceAddonA     = "price_addon_a"
	priceAddonB     = "price_addon_b"
	priceAddonC     = "price_addon_c"
	priceFlexTokens = "price_flex_tokens"
	priceFlexGB     = "price_flex_gb"
	priceFlexBad    = "price_flex_minutes"
)

// reconcilerTestSuite wires every service against the in-memory stores and
// seeds a small catalog
type reconcilerTestSuite struct {
	testutil.BaseServiceTestSuite

	params     ServiceParams
	orders     OrderLedger
	subs       SubscriptionReconciler
	storage    StorageService
	guests     GuestProvisioner
	households HouseholdService
	router     EntitlementRouter
	invoices   InvoiceService
	dispatcher WebhookDispatcher
}

func (s *reconcilerTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.params = NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		nil,
		stores.OrderRepo,
		stores.OrderItemRepo,
		stores.SubRepo,
		stores.StorageRepo,
		stores.HouseholdRepo,
		stores.UserRepo,
		stores.CatalogRepo,
		stores.PaymentRepo,
		stores.ChecklistRepo,
		stores.Provider,
		stores.Identity,
		stores.Ledger,
	)
	now := s.GetNow()
	s.params.Now = func() time.Time { return now }

	s.orders = NewOrderLedger(s.params)
	s.subs = NewSubscriptionReconciler(s.params)
	s.storage = NewStorageService(s.params)
	s.guests = NewGuestProvisioner(s.params)
	s.households = NewHouseholdService(s.params)
	s.router = NewEntitlementRouter(s.params, s.orders, s.subs, s.storage, s.guests, s.households)
	s.invoices = NewInvoiceService(s.params, s.storage)
	s.dispatcher = NewWebhookDispatcher(s.params, s.router, s.subs, s.storage, s.invoices)

	s.seedCatalog()
}

func (s *reconcilerTestSuite) seedCatalog() {
	ctx := s.GetContext()
	c := s.GetStores().CatalogRepo

	s.Require().NoError(c.AddTier(ctx, &catalog.MembershipTier{
		ID:              "tier_vp28",
		TierType:        tierContinuity,
		Name:            "Vision Pro",
		BillingCycle:    types.BillingCycleTwentyEight,
		ExternalPriceID: priceContinuity,
		StorageQuotaGB:  decimal.NewFromInt(50),
		SharedSeats:     1,
	}))
	s.Require().NoError(c.AddTier(ctx, &catalog.MembershipTier{
		ID:              "tier_family",
		TierType:        tierFamily,
		Name:            "Family",
		BillingCycle:    types.BillingCycleAnnual,
		ExternalPriceID: priceFamily,
		StorageQuotaGB:  decimal.NewFromInt(200),
		SharedSeats:     6,
	}))

	s.Require().NoError(c.AddProduct(ctx, &catalog.Product{ID: "prod_intensive", Key: "intensive", Name: "Intensive"}))
	s.Require().NoError(c.AddProduct(ctx, &catalog.Product{ID: "prod_tokens", Key: "token_pack", Name: "Token pack"}))
	s.Require().NoError(c.AddProduct(ctx, &catalog.Product{ID: "prod_storage", Key: "storage", Name: "Storage"}))
	s.Require().NoError(c.AddProduct(ctx, &catalog.Product{ID: "prod_flex", Key: "flex", Name: "Flex pack"}))

	prices := []*catalog.Price{
		{ID: "pr_intensive", ProductID: "prod_intensive", ExternalPriceID: priceIntensive, Amount: 49900, Currency: "usd", Active: true},
		{ID: "pr_tokens", ProductID: "prod_tokens", ExternalPriceID: priceTokens, Amount: 2500, Currency: "usd", Active: true},
		addonPrice("pr_addon_a", priceAddonA),
		addonPrice("pr_addon_b", priceAddonB),
		addonPrice("pr_addon_c", priceAddonC),
		packPrice("pr_flex_tokens", priceFlexTokens, "tokens_500", "500", "tokens", 1500),
		packPrice("pr_flex_gb", priceFlexGB, "storage_100", "100", "storage_gb", 999),
		packPrice("pr_flex_bad", priceFlexBad, "minutes_60", "60", "minutes", 500),
	}
	for _, p := range prices {
		s.Require().NoError(c.AddPrice(ctx, p))
	}
}

func addonPrice(id, externalID string) *catalog.Price {
	return &catalog.Price{
		ID:              id,
		ProductID:       "prod_storage",
		ExternalPriceID: externalID,
		Amount:          299,
		Currency:        "usd",
		Active:          true,
		Metadata: types.Metadata{
			types.PriceMetadataAddonKey:    "storage_addon_50gb",
			types.PriceMetadataGrantAmount: "50",
		},
	}
}

func packPrice(id, externalID, key, amount, unit string, cents int64) *catalog.Price {
	return &catalog.Price{
		ID:              id,
		ProductID:       "prod_flex",
		ExternalPriceID: externalID,
		Amount:          cents,
		Currency:        "usd",
		Active:          true,
		Metadata: types.Metadata{
			types.PriceMetadataPackKey:     key,
			types.PriceMetadataGrantAmount: amount,
			types.PriceMetadataGrantUnit:   unit,
		},
	}
}

// activeSnapshot builds a provider subscription billing the given prices
func (s *reconcilerTestSuite) activeSnapshot(externalID string, priceIDs ...string) subscription.Snapshot {
	now := s.GetNow()
	return subscription.Snapshot{
		ExternalSubscriptionID: externalID,
		ExternalCustomerID:     "cus_1",
		Status:                 types.SubscriptionStatusActive,
		PriceIDs:               priceIDs,
		CurrentPeriodStart:     now,
		CurrentPeriodEnd:       now.Add(28 * 24 * time.Hour),
	}
}

func (s *reconcilerTestSuite) mustSubscription(externalID, userID string, priceIDs ...string) *subscription.Subscription {
	snap := s.activeSnapshot(externalID, priceIDs...)
	sub, _, err := s.subs.EnsureFromProvider(s.GetContext(), &snap, SubscriptionOwner{UserID: userID})
	s.Require().NoError(err)
	return sub
}

func (s *reconcilerTestSuite) event(id string, eventType types.WebhookEventType, data any) *webhook.Event {
	raw, err := json.Marshal(data)
	s.Require().NoError(err)
	return &webhook.Event{
		ID:      id,
		Type:    eventType,
		Created: s.GetNow(),
		Data:    raw,
	}
}

func (s *reconcilerTestSuite) session(id, mode string, metadata types.Metadata) *webhook.CheckoutSession {
	return &webhook.CheckoutSession{
		ID:       id,
		Mode:     mode,
		Customer: "cus_1",
		Currency: "usd",
		Metadata: metadata,
	}
}
