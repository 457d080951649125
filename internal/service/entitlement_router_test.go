package service

import (
	"errors"
	"testing"
	"time"

	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/domain/webhook"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type EntitlementRouterSuite struct {
	reconcilerTestSuite
}

func TestEntitlementRouter(t *testing.T) {
	suite.Run(t, new(EntitlementRouterSuite))
}

func (s *EntitlementRouterSuite) subscriptionSession(id, externalSubID, userID, tierType string) *webhook.CheckoutSession {
	session := s.session(id, "subscription", types.Metadata{
		types.MetadataKeyUserID:   userID,
		types.MetadataKeyTierType: tierType,
	})
	session.Subscription = externalSubID
	return session
}

func (s *EntitlementRouterSuite) intensiveSession(id string, metadata types.Metadata) *webhook.CheckoutSession {
	session := s.session(id, "payment", metadata)
	session.Customer = "cus_9"
	session.AmountTotal = lo.ToPtr(int64(49900))
	session.CustomerDetails.Email = "A@B.com"
	return session
}

func (s *EntitlementRouterSuite) TestSubscriptionCheckoutProvisionsOnce() {
	ctx := s.GetContext()
	stores := s.GetStores()
	stores.Provider.AddSubscription(s.activeSnapshot("sub_ext_1", priceContinuity))

	session := s.subscriptionSession("cs_1", "sub_ext_1", "u1", tierContinuity)
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	subs := stores.SubRepo.ListByUser(ctx, "u1")
	s.Require().Len(subs, 1)
	sub := subs[0]
	s.Equal("tier_vp28", lo.FromPtr(sub.MembershipTierID))
	s.Equal(types.SubscriptionStatusActive, sub.Status)

	grants := stores.StorageRepo.List(ctx, nil, nil)
	s.Require().Len(grants, 1)
	s.Equal(sub.ID, lo.FromPtr(grants[0].SubscriptionID))
	s.Equal(priceContinuity, grants[0].ExternalPriceID)

	tokens := stores.Ledger.Entries("price")
	s.Require().Len(tokens, 1)
	s.Equal(1, tokens[0].Cycle)
	s.Equal(sub.ID, tokens[0].SubscriptionID)
}

func (s *EntitlementRouterSuite) TestSubscriptionCheckoutGrantsAddonsAndSharedHousehold() {
	ctx := s.GetContext()
	stores := s.GetStores()
	stores.Provider.AddSubscription(s.activeSnapshot("sub_ext_2", priceFamily, priceAddonA, priceAddonB))

	session := s.subscriptionSession("cs_family", "sub_ext_2", "u5", tierFamily)
	session.CustomerEmail = "pat@example.com"
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	sub, err := stores.SubRepo.GetByExternalID(ctx, "sub_ext_2")
	s.Require().NoError(err)
	s.ElementsMatch([]string{priceAddonA, priceAddonB}, stores.StorageRepo.AddonPriceIDs(ctx, sub.ID))

	h, err := stores.HouseholdRepo.GetByAdmin(ctx, "u5")
	s.Require().NoError(err)
	s.Equal("pat's Household", h.Name)
	s.Equal(types.PlanTypeHousehold, h.PlanType)
	s.Equal(s.GetConfig().Billing.HouseholdMaxMembers, h.MaxMembers)

	members, err := stores.HouseholdRepo.ListMembers(ctx, h.ID)
	s.NoError(err)
	s.Require().Len(members, 1)
	s.Equal(types.HouseholdRoleAdmin, members[0].Role)
}

func (s *EntitlementRouterSuite) TestSharedTierSetsHouseholdSeats() {
	ctx := s.GetContext()
	stores := s.GetStores()
	s.Require().NoError(stores.CatalogRepo.AddTier(ctx, &catalog.MembershipTier{
		ID:              "tier_duo",
		TierType:        "duo",
		Name:            "Duo",
		BillingCycle:    types.BillingCycleAnnual,
		ExternalPriceID: "price_duo",
		StorageQuotaGB:  decimal.NewFromInt(100),
		SharedSeats:     4,
	}))
	stores.Provider.AddSubscription(s.activeSnapshot("sub_ext_duo", "price_duo"))

	session := s.subscriptionSession("cs_duo", "sub_ext_duo", "u6", "duo")
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	h, err := stores.HouseholdRepo.GetByAdmin(ctx, "u6")
	s.Require().NoError(err)
	s.Equal(4, h.MaxMembers)
	s.Equal(types.PlanTypeHousehold, h.PlanType)
}

func (s *EntitlementRouterSuite) TestSubscriptionCheckoutRequiresTier() {
	session := s.subscriptionSession("cs_no_tier", "sub_ext_1", "u1", "")
	err := s.router.HandleCheckoutCompleted(s.GetContext(), session)
	s.True(ierr.IsValidation(err))
	s.Zero(s.GetStores().SubRepo.Count(s.GetContext(), nil))
}

func (s *EntitlementRouterSuite) TestTokenPackGrantedOnce() {
	ctx := s.GetContext()
	stores := s.GetStores()
	stores.Provider.SetLineItems("cs_2", interfaces.CheckoutLineItem{PriceID: priceTokens, Quantity: 1})

	session := s.session("cs_2", "payment", types.Metadata{
		"purchaseType": "token_pack",
		"tokensAmount": "1000",
		"userId":       "u2",
	})
	session.AmountTotal = lo.ToPtr(int64(2500))

	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	s.True(decimal.NewFromInt(1000).Equal(stores.Ledger.PurchasedTokens("u2")))

	orders := stores.OrderRepo.All(ctx)
	s.Require().Len(orders, 1)
	s.Equal(types.OrderStatusPaid, orders[0].Status)
	s.Equal(int64(2500), orders[0].TotalAmount)

	items, err := stores.OrderItemRepo.ListByOrder(ctx, orders[0].ID)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal("pr_tokens", lo.FromPtr(items[0].PriceID))
}

func (s *EntitlementRouterSuite) TestTokenPackItemFailureRemovesOrder() {
	ctx := s.GetContext()
	stores := s.GetStores()
	stores.OrderItemRepo.FailCreate = ierr.NewError("insert failed").Mark(ierr.ErrDatabase)

	session := s.session("cs_tokens_fail", "payment", types.Metadata{
		types.MetadataKeyPurchaseType: "token_pack",
		types.MetadataKeyTokensAmount: "1000",
		types.MetadataKeyUserID:       "u2",
	})
	err := s.router.HandleCheckoutCompleted(ctx, session)
	s.True(ierr.IsDatabase(err))
	s.Empty(stores.OrderRepo.All(ctx))
	s.Empty(stores.Ledger.Entries("purchase"))

	stores.OrderItemRepo.FailCreate = nil
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))
	s.True(decimal.NewFromInt(1000).Equal(stores.Ledger.PurchasedTokens("u2")))

	orders := stores.OrderRepo.All(ctx)
	s.Require().Len(orders, 1)
	s.Equal(types.OrderStatusPaid, orders[0].Status)
	s.Equal("token_pack", orders[0].Metadata[types.MetadataKeyPurchaseType])
}

func (s *EntitlementRouterSuite) TestTokenPackRejectsInvalidAmount() {
	ctx := s.GetContext()
	for _, amount := range []string{"", "abc", "0", "-5"} {
		session := s.session("cs_bad_"+amount, "payment", types.Metadata{
			types.MetadataKeyPurchaseType: "token_pack",
			types.MetadataKeyTokensAmount: amount,
			types.MetadataKeyUserID:       "u2",
		})
		err := s.router.HandleCheckoutCompleted(ctx, session)
		s.True(ierr.IsValidation(err), amount)
	}
	s.Empty(s.GetStores().OrderRepo.All(ctx))
}

func (s *EntitlementRouterSuite) TestFlexPackTokens() {
	ctx := s.GetContext()
	stores := s.GetStores()
	session := s.session("cs_flex", "payment", types.Metadata{
		types.MetadataKeyPurchaseType: "flex_pack",
		types.MetadataKeyPackKey:      "tokens_500",
		types.MetadataKeyQuantity:     "2",
		types.MetadataKeyUserID:       "u3",
	})

	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	s.True(decimal.NewFromInt(1000).Equal(stores.Ledger.PurchasedTokens("u3")))
	orders := stores.OrderRepo.All(ctx)
	s.Require().Len(orders, 1)
	s.Equal(int64(3000), orders[0].TotalAmount)
	s.True(orders[0].IsPaid())

	items, err := stores.OrderItemRepo.ListByOrder(ctx, orders[0].ID)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal(int64(2), items[0].Quantity)
}

func (s *EntitlementRouterSuite) TestFlexPackStorage() {
	ctx := s.GetContext()
	session := s.session("cs_flex_gb", "payment", types.Metadata{
		types.MetadataKeyPurchaseType: "flex_pack",
		types.MetadataKeyProductKey:   "storage_100",
		types.MetadataKeyUserID:       "u3",
	})
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	grants := s.GetStores().StorageRepo.List(ctx, nil, nil)
	s.Require().Len(grants, 1)
	s.True(decimal.NewFromInt(100).Equal(grants[0].QuotaGB))
	s.NotNil(grants[0].OrderItemID)
	s.Empty(s.GetStores().Ledger.Entries("purchase"))
}

func (s *EntitlementRouterSuite) TestFlexPackUnknownUnit() {
	ctx := s.GetContext()
	session := s.session("cs_flex_bad", "payment", types.Metadata{
		types.MetadataKeyPurchaseType: "flex_pack",
		types.MetadataKeyPackKey:      "minutes_60",
		types.MetadataKeyUserID:       "u3",
	})

	err := s.router.HandleCheckoutCompleted(ctx, session)
	s.True(ierr.IsValidation(err))
	s.Empty(s.GetStores().OrderRepo.All(ctx))
	s.Empty(s.GetStores().Ledger.Entries("purchase"))
}

func (s *EntitlementRouterSuite) TestFlexPackItemFailureRemovesOrder() {
	ctx := s.GetContext()
	stores := s.GetStores()
	stores.OrderItemRepo.FailCreate = ierr.NewError("insert failed").Mark(ierr.ErrDatabase)

	session := s.session("cs_flex_fail", "payment", types.Metadata{
		types.MetadataKeyPurchaseType: "flex_pack",
		types.MetadataKeyPackKey:      "tokens_500",
		types.MetadataKeyUserID:       "u3",
	})
	err := s.router.HandleCheckoutCompleted(ctx, session)
	s.True(ierr.IsDatabase(err))
	s.Empty(stores.OrderRepo.All(ctx))
	s.Empty(stores.Ledger.Entries("purchase"))

	// the redelivery succeeds once the store recovers
	stores.OrderItemRepo.FailCreate = nil
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))
	s.True(decimal.NewFromInt(500).Equal(stores.Ledger.PurchasedTokens("u3")))
}

func (s *EntitlementRouterSuite) TestIntensiveGuestPurchase() {
	ctx := s.GetContext()
	stores := s.GetStores()
	now := s.GetNow()

	session := s.intensiveSession("cs_int", types.Metadata{
		types.MetadataKeyPurchaseType: "intensive",
		types.MetadataKeyUserID:       "guest",
		types.MetadataKeyPaymentPlan:  "3pay",
	})
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	userID, ok := stores.Identity.UserID("a@b.com")
	s.Require().True(ok)
	profile, err := stores.UserRepo.Get(ctx, userID)
	s.Require().NoError(err)
	s.Equal("a@b.com", profile.Email)

	links := stores.Identity.Links()
	s.Require().Len(links, 1)
	s.Equal("http://localhost:3000/auth/setup-password?intensive=true", links[0].RedirectTo)

	orders := stores.OrderRepo.All(ctx)
	s.Require().Len(orders, 1)
	s.Equal(userID, orders[0].UserID)
	s.Equal(int64(49900), orders[0].TotalAmount)
	s.True(orders[0].IsPaid())

	items, err := stores.OrderItemRepo.ListByOrder(ctx, orders[0].ID)
	s.NoError(err)
	s.Require().Len(items, 1)
	item := items[0]
	s.Equal("prod_intensive", item.ProductID)
	s.Require().NotNil(item.ActivationDeadline)
	s.WithinDuration(now.Add(72*time.Hour), *item.ActivationDeadline, time.Second)
	s.Equal("3", item.Metadata["installments_total"])
	s.Equal("1", item.Metadata["installments_paid"])

	_, err = stores.ChecklistRepo.GetByOrderItem(ctx, item.ID)
	s.NoError(err)
	s.Len(stores.Ledger.Entries("trial"), 1)

	s.Require().Len(stores.Provider.Created, 1)
	created := stores.Provider.Created[0]
	s.Equal("cus_9", created.CustomerID)
	s.Equal(priceContinuity, created.PriceID)
	s.WithinDuration(now.Add(56*24*time.Hour), created.TrialEnd, time.Second)

	subs := stores.SubRepo.ListByUser(ctx, userID)
	s.Require().Len(subs, 1)
	sub := subs[0]
	s.Equal(types.SubscriptionStatusTrialing, sub.Status)
	s.Require().NotNil(sub.TrialEnd)
	s.WithinDuration(now.Add(56*24*time.Hour), *sub.TrialEnd, time.Second)
	s.Equal(item.ID, lo.FromPtr(sub.OrderItemID))
	s.Equal(orders[0].ID, lo.FromPtr(sub.OrderID))

	linked, err := stores.OrderItemRepo.GetByProduct(ctx, orders[0].ID, "prod_intensive")
	s.NoError(err)
	s.Equal(sub.ID, lo.FromPtr(linked.SubscriptionID))
}

func (s *EntitlementRouterSuite) TestIntensiveRedeliveryIsIdempotent() {
	ctx := s.GetContext()
	stores := s.GetStores()
	session := s.intensiveSession("cs_int_twice", types.Metadata{
		types.MetadataKeyPurchaseType: "intensive",
	})

	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	s.Equal(1, stores.Identity.Users())
	s.Len(stores.OrderRepo.All(ctx), 1)
	s.Len(stores.OrderItemRepo.All(ctx), 1)
	s.Equal(1, stores.ChecklistRepo.Count(ctx, nil))
	s.Len(stores.Ledger.Entries("trial"), 1)
	s.Equal(1, stores.Provider.Subscriptions())
	s.Equal(1, stores.SubRepo.Count(ctx, nil))
}

func (s *EntitlementRouterSuite) TestFreeIntensiveHasZeroAmount() {
	ctx := s.GetContext()
	session := s.intensiveSession("cs_free", types.Metadata{
		types.MetadataKeyPurchaseType:    "intensive",
		types.MetadataKeyUserID:          "u7",
		types.MetadataKeyIsFreeIntensive: "true",
	})
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	orders := s.GetStores().OrderRepo.All(ctx)
	s.Require().Len(orders, 1)
	s.Zero(orders[0].TotalAmount)
	s.Equal(0, s.GetStores().Identity.Users())
}

func (s *EntitlementRouterSuite) TestCombinedPurchaseSurvivesHouseholdFailure() {
	ctx := s.GetContext()
	stores := s.GetStores()
	stores.HouseholdRepo.FailCreate = errors.New("households table unavailable")

	session := s.intensiveSession("cs_combined", types.Metadata{
		types.MetadataKeyProductType: "combined_intensive_continuity",
		types.MetadataKeyUserID:      "u8",
		types.MetadataKeyPlanType:    "household",
	})
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	s.Len(stores.OrderItemRepo.All(ctx), 1)
	s.Equal(1, stores.SubRepo.Count(ctx, nil))
	s.Zero(stores.HouseholdRepo.Count(ctx, nil))
}

func (s *EntitlementRouterSuite) TestCombinedHouseholdPurchase() {
	ctx := s.GetContext()
	stores := s.GetStores()

	session := s.intensiveSession("cs_combined_hh", types.Metadata{
		types.MetadataKeyProductType: "combined_intensive_continuity",
		types.MetadataKeyPlanType:    "household",
	})
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))

	userID, ok := stores.Identity.UserID("a@b.com")
	s.Require().True(ok)
	h, err := stores.HouseholdRepo.GetByAdmin(ctx, userID)
	s.Require().NoError(err)
	s.Equal(6, h.MaxMembers)
	s.Equal("a's Household", h.Name)

	profile, err := stores.UserRepo.Get(ctx, userID)
	s.NoError(err)
	s.Equal(h.ID, lo.FromPtr(profile.HouseholdID))
	s.True(profile.IsHouseholdAdmin)

	s.Require().Len(stores.Provider.Created, 1)
	s.Equal("household", stores.Provider.Created[0].Metadata[types.MetadataKeyPlanType])
}

func (s *EntitlementRouterSuite) TestUnknownPurchaseTypeIsIgnored() {
	ctx := s.GetContext()
	session := s.session("cs_unknown", "payment", types.Metadata{
		types.MetadataKeyPurchaseType: "gift_card",
		types.MetadataKeyUserID:       "u1",
	})
	s.NoError(s.router.HandleCheckoutCompleted(ctx, session))
	s.Empty(s.GetStores().OrderRepo.All(ctx))
}
