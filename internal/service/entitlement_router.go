package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/flexprice/reconciler/internal/domain/catalog"
	"github.com/flexprice/reconciler/internal/domain/intensive"
	"github.com/flexprice/reconciler/internal/domain/order"
	"github.com/flexprice/reconciler/internal/domain/webhook"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/idempotency"
	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// EntitlementRouter grants what a completed checkout bought. The purchase
// type is decoded once from the session and selects one strategy.
type EntitlementRouter interface {
	HandleCheckoutCompleted(ctx context.Context, session *webhook.CheckoutSession) error
}

type entitlementRouter struct {
	ServiceParams
	orders     OrderLedger
	subs       SubscriptionReconciler
	storage    StorageService
	guests     GuestProvisioner
	households HouseholdService
	steps      *stepRunner
}

func NewEntitlementRouter(
	params ServiceParams,
	orders OrderLedger,
	subs SubscriptionReconciler,
	storage StorageService,
	guests GuestProvisioner,
	households HouseholdService,
) EntitlementRouter {
	return &entitlementRouter{
		ServiceParams: params,
		orders:        orders,
		subs:          subs,
		storage:       storage,
		guests:        guests,
		households:    households,
		steps:         newStepRunner(params),
	}
}

func (r *entitlementRouter) HandleCheckoutCompleted(ctx context.Context, session *webhook.CheckoutSession) error {
	purchaseType := session.PurchaseType()
	r.Logger.WithContext(ctx).Infow("routing checkout",
		"session_id", session.ID,
		"mode", session.Mode,
		"purchase_type", purchaseType,
	)

	switch {
	case purchaseType == types.PurchaseTypeSubscription:
		return r.handleSubscription(ctx, session)
	case purchaseType == types.PurchaseTypeTokenPack:
		return r.handleTokenPack(ctx, session)
	case purchaseType == types.PurchaseTypeFlexPack:
		return r.handleFlexPack(ctx, session)
	case purchaseType.IsIntensive():
		return r.handleIntensive(ctx, session, purchaseType)
	default:
		r.Logger.WithContext(ctx).Warnw("ignoring checkout with unknown purchase type",
			"session_id", session.ID,
			"purchase_type", session.Metadata.Lookup(types.MetadataKeyPurchaseType),
		)
		return nil
	}
}

func (r *entitlementRouter) handleSubscription(ctx context.Context, session *webhook.CheckoutSession) error {
	tierType := session.Metadata.Lookup(types.MetadataKeyTierType)
	if tierType == "" {
		return missingMetadata(session, types.MetadataKeyTierType)
	}
	if session.Subscription == "" {
		return ierr.NewError("subscription checkout has no subscription").
			WithHint("Subscription-mode sessions must reference a subscription").
			WithReportableDetails(map[string]any{"session_id": session.ID}).
			Mark(ierr.ErrValidation)
	}

	tier, err := r.CatalogRepo.GetTierByType(ctx, tierType)
	if err != nil {
		return err
	}
	userID, err := r.resolvePurchaser(ctx, session)
	if err != nil {
		return err
	}

	snap, err := r.Provider.RetrieveSubscription(ctx, session.Subscription)
	if err != nil {
		return err
	}
	snap.ExternalCustomerID = lo.CoalesceOrEmpty(snap.ExternalCustomerID, session.Customer)

	sub, created, err := r.subs.EnsureFromProvider(ctx, snap, SubscriptionOwner{
		UserID:           userID,
		MembershipTierID: lo.ToPtr(tier.ID),
	})
	if err != nil {
		return err
	}
	log := r.Logger.WithContext(ctx).With("subscription_id", sub.ID, "user_id", userID)
	if !created {
		log.Infow("subscription already provisioned")
		return nil
	}

	_ = r.steps.Run(ctx, "tier_tokens", func(ctx context.Context) error {
		return r.Ledger.GrantForPrice(ctx, userID, lo.CoalesceOrEmpty(sub.PriceID, tier.ExternalPriceID), sub.ID, 1)
	})
	_ = r.steps.Run(ctx, "tier_storage", func(ctx context.Context) error {
		_, err := r.storage.EnsureTierGrant(ctx, sub.ID, userID, tier)
		return err
	})
	_ = r.steps.Run(ctx, "storage_addons", func(ctx context.Context) error {
		_, err := r.storage.ReconcileStorageAddons(ctx, StorageAddonRequest{
			SubscriptionID: sub.ID,
			UserID:         userID,
			ActivePriceIDs: snap.PriceIDs,
			GrantMissing:   true,
		})
		return err
	})

	planType := types.ParsePlanType(session.Metadata.Lookup(types.MetadataKeyPlanType))
	if tier.HasSharedSeats() || planType == types.PlanTypeHousehold {
		_ = r.steps.Run(ctx, "household", func(ctx context.Context) error {
			_, err := r.households.CreateHousehold(ctx, HouseholdRequest{
				AdminUserID: userID,
				NameHint:    session.Email(),
				PlanType:    types.PlanTypeHousehold,
				MaxMembers:  lo.Ternary(tier.HasSharedSeats(), tier.SharedSeats, 0),
			})
			return err
		})
	}

	log.Infow("provisioned subscription", "tier_type", tier.TierType)
	return nil
}

func (r *entitlementRouter) handleTokenPack(ctx context.Context, session *webhook.CheckoutSession) error {
	raw := session.Metadata.Lookup(types.MetadataKeyTokensAmount)
	tokens, err := decimal.NewFromString(raw)
	if err != nil || !tokens.IsPositive() {
		return ierr.NewError("token pack has no valid tokens amount").
			WithHint("tokens_amount must be a positive number").
			WithReportableDetails(map[string]any{
				"session_id":    session.ID,
				"tokens_amount": raw,
			}).
			Mark(ierr.ErrValidation)
	}

	userID, err := r.resolvePurchaser(ctx, session)
	if err != nil {
		return err
	}
	o, created, err := r.orders.EnsureOrder(ctx, session.ID, r.orderDraft(session, userID, session.Amount(0)))
	if err != nil {
		return err
	}
	log := r.Logger.WithContext(ctx).With("order_id", o.ID, "user_id", o.UserID, "session_id", session.ID)

	if o.IsPaid() {
		log.Infow("token pack already granted")
		return nil
	}

	item, err := r.orders.EnsureOrderItem(ctx, o.ID, r.checkoutPriceID(ctx, session), r.Config.Billing.TokenPackProductKey, o.TotalAmount, order.ItemAttributes{
		Currency: o.Currency,
		Metadata: types.Metadata{types.MetadataKeyTokensAmount: tokens.String()},
	})
	if err == nil && item == nil {
		err = ierr.NewError("token pack product is not in the catalog").
			WithHint("No catalog price or product matches the token pack purchase").
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		r.orders.CompensateOrder(ctx, o, created)
		return err
	}

	err = r.Ledger.RecordPurchase(ctx, interfaces.PurchaseGrant{
		UserID: o.UserID,
		Amount: tokens,
		Source: string(types.PurchaseTypeTokenPack),
		IdempotencyKey: r.Keys.GenerateKey(idempotency.ScopeTokenPack, map[string]interface{}{
			"session_id": session.ID,
		}),
		Metadata: types.Metadata{
			"session_id":            session.ID,
			"order_id":              o.ID,
			types.MetadataKeyPackID: session.Metadata.Lookup(types.MetadataKeyPackID),
		},
	})
	if err != nil {
		return err
	}
	if err := r.orders.MarkOrderPaid(ctx, o); err != nil {
		return err
	}
	log.Infow("granted token pack", "tokens", tokens.String())
	return nil
}

func (r *entitlementRouter) handleFlexPack(ctx context.Context, session *webhook.CheckoutSession) error {
	packKey := lo.CoalesceOrEmpty(
		session.Metadata.Lookup(types.MetadataKeyPackKey),
		session.Metadata.Lookup(types.MetadataKeyProductKey),
	)
	if packKey == "" {
		return missingMetadata(session, types.MetadataKeyPackKey)
	}

	price, err := r.CatalogRepo.GetPackByKey(ctx, packKey)
	if err != nil {
		return err
	}
	pack, err := price.Pack()
	if err != nil {
		return err
	}
	if err := pack.GrantUnit.Validate(); err != nil {
		return err
	}

	userID, err := r.resolvePurchaser(ctx, session)
	if err != nil {
		return err
	}

	quantity := parseQuantity(session.Metadata.Lookup(types.MetadataKeyQuantity))
	amount := session.Amount(pack.Amount * quantity)
	o, created, err := r.orders.EnsureOrder(ctx, session.ID, r.orderDraft(session, userID, amount))
	if err != nil {
		return err
	}
	log := r.Logger.WithContext(ctx).With("order_id", o.ID, "user_id", o.UserID, "pack_key", pack.Key)
	if o.IsPaid() {
		log.Infow("flex pack already granted")
		return nil
	}

	item, err := r.orders.EnsureOrderItemByPrice(ctx, o.ID, pack.ExternalPriceID, amount, order.ItemAttributes{
		Quantity: quantity,
		Currency: lo.CoalesceOrEmpty(session.Currency, pack.Currency),
		Metadata: types.Metadata{types.MetadataKeyPackKey: pack.Key},
	})
	if err == nil && item == nil {
		err = ierr.NewError("flex pack price is not in the catalog").
			WithHintf("Pack %s references an unknown price", pack.Key).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		r.orders.CompensateOrder(ctx, o, created)
		return err
	}

	switch pack.GrantUnit {
	case types.GrantUnitTokens:
		err = r.Ledger.RecordPurchase(ctx, interfaces.PurchaseGrant{
			UserID: o.UserID,
			Amount: pack.GrantAmount.Mul(decimal.NewFromInt(item.Quantity)),
			Source: string(types.PurchaseTypeFlexPack),
			IdempotencyKey: r.Keys.GenerateKey(idempotency.ScopeFlexPack, map[string]interface{}{
				"session_id":    session.ID,
				"order_item_id": item.ID,
			}),
			Metadata: types.Metadata{
				"order_id":               o.ID,
				"order_item_id":          item.ID,
				types.MetadataKeyPackKey: pack.Key,
			},
		})
	case types.GrantUnitStorageGB:
		_, err = r.storage.EnsurePackGrant(ctx, o.UserID, item, pack)
	}
	if err != nil {
		return err
	}
	if err := r.orders.MarkOrderPaid(ctx, o); err != nil {
		return err
	}
	log.Infow("granted flex pack", "grant_unit", pack.GrantUnit, "grant_amount", pack.GrantAmount.String())
	return nil
}

// handleIntensive runs the onboarding of an intensive purchase. Only the
// purchaser lookup aborts; every later step is its own error boundary.
func (r *entitlementRouter) handleIntensive(ctx context.Context, session *webhook.CheckoutSession, purchaseType types.PurchaseType) error {
	userID, err := r.resolvePurchaser(ctx, session)
	if err != nil {
		return err
	}

	now := r.now()
	log := r.Logger.WithContext(ctx).With("session_id", session.ID, "user_id", userID)
	plan := types.ParsePaymentPlan(session.Metadata.Lookup(types.MetadataKeyPaymentPlan))
	if raw := session.Metadata.Lookup(types.MetadataKeyIntensivePlan); raw != "" {
		plan = types.ParsePaymentPlan(raw)
	}

	var o *order.Order
	var item *order.OrderItem
	_ = r.steps.Run(ctx, "intensive_order", func(ctx context.Context) error {
		amount := session.Amount(r.Config.Billing.DefaultIntensiveAmount)
		if strings.EqualFold(session.Metadata.Lookup(types.MetadataKeyIsFreeIntensive), "true") {
			amount = 0
		}

		var created bool
		var err error
		o, created, err = r.orders.EnsureOrder(ctx, session.ID, r.orderDraft(session, userID, amount))
		if err != nil {
			return err
		}

		item, err = r.orders.EnsureOrderItem(ctx, o.ID, r.checkoutPriceID(ctx, session), r.Config.Billing.IntensiveProductKey, amount, order.ItemAttributes{
			Currency:           o.Currency,
			ActivationDeadline: lo.ToPtr(now.Add(r.Config.Billing.ActivationWindow)),
			Metadata: types.Metadata{
				"payment_plan":       string(plan),
				"installments_total": strconv.Itoa(plan.Installments()),
				"installments_paid":  "1",
			},
		})
		if err == nil && item == nil {
			err = ierr.NewError("intensive product is not in the catalog").
				WithHint("No catalog price or product matches the intensive purchase").
				Mark(ierr.ErrNotFound)
		}
		if err != nil {
			r.orders.CompensateOrder(ctx, o, created)
			o = nil
			return err
		}
		return r.orders.MarkOrderPaid(ctx, o)
	})

	_ = r.steps.Run(ctx, "intensive_checklist", func(ctx context.Context) error {
		if item == nil {
			return ierr.NewError("no order item for checklist").
				WithHint("Checklist requires the intensive order item").
				Mark(ierr.ErrInvalidOperation)
		}
		_, _, err := ensure(ctx, "intensive_checklist",
			func(ctx context.Context) (*intensive.Checklist, error) {
				return r.ChecklistRepo.GetByOrderItem(ctx, item.ID)
			},
			func(ctx context.Context) (*intensive.Checklist, error) {
				c := &intensive.Checklist{
					ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHECKLIST),
					OrderItemID: item.ID,
					UserID:      userID,
					Status:      types.ChecklistStatusPending,
					CreatedAt:   now,
				}
				return c, r.ChecklistRepo.Create(ctx, c)
			},
		)
		return err
	})

	_ = r.steps.Run(ctx, "trial_tokens", func(ctx context.Context) error {
		return r.Ledger.GrantTrial(ctx, userID, r.Keys.GenerateKey(idempotency.ScopeTrialTokens, map[string]interface{}{
			"session_id": session.ID,
		}))
	})

	_ = r.steps.Run(ctx, "continuity_subscription", func(ctx context.Context) error {
		return r.createContinuity(ctx, session, userID, o, item)
	})

	planType := types.ParsePlanType(session.Metadata.Lookup(types.MetadataKeyPlanType))
	if planType == types.PlanTypeHousehold {
		_ = r.steps.Run(ctx, "household", func(ctx context.Context) error {
			_, err := r.households.CreateHousehold(ctx, HouseholdRequest{
				AdminUserID: userID,
				NameHint:    session.Email(),
				PlanType:    planType,
			})
			return err
		})
	}

	log.Infow("processed intensive purchase",
		"purchase_type", purchaseType,
		"payment_plan", plan,
		"plan_type", planType,
	)
	return nil
}

// createContinuity starts the trialing subscription that follows an intensive
func (r *entitlementRouter) createContinuity(ctx context.Context, session *webhook.CheckoutSession, userID string, o *order.Order, item *order.OrderItem) error {
	if session.Customer == "" {
		return ierr.NewError("checkout has no customer for continuity").
			WithHint("A provider customer is required to start the continuity subscription").
			WithReportableDetails(map[string]any{"session_id": session.ID}).
			Mark(ierr.ErrValidation)
	}

	priceID := session.Metadata.Lookup(types.MetadataKeyContinuityPriceID)
	var tier *catalog.MembershipTier
	tierType := lo.CoalesceOrEmpty(session.Metadata.Lookup(types.MetadataKeyContinuityPlan), r.Config.Billing.DefaultContinuityTier)
	if t, err := r.CatalogRepo.GetTierByType(ctx, tierType); err == nil {
		tier = t
		priceID = lo.CoalesceOrEmpty(priceID, t.ExternalPriceID)
	} else if !ierr.IsNotFound(err) {
		return err
	}
	if priceID == "" {
		return ierr.NewError("no continuity price").
			WithHintf("Continuity tier %s is not in the catalog", tierType).
			Mark(ierr.ErrNotFound)
	}

	metadata := types.Metadata{
		types.MetadataKeyUserID:   userID,
		types.MetadataKeyPlanType: string(types.ParsePlanType(session.Metadata.Lookup(types.MetadataKeyPlanType))),
		"source_session_id":       session.ID,
	}
	owner := SubscriptionOwner{UserID: userID}
	if tier != nil {
		owner.MembershipTierID = lo.ToPtr(tier.ID)
		metadata[types.MetadataKeyTierType] = tier.TierType
	}
	if o != nil {
		owner.OrderID = lo.ToPtr(o.ID)
		metadata["order_id"] = o.ID
	}
	if item != nil {
		owner.OrderItemID = lo.ToPtr(item.ID)
	}

	snap, err := r.Provider.CreateSubscription(ctx, interfaces.CreateSubscriptionParams{
		CustomerID: session.Customer,
		PriceID:    priceID,
		TrialEnd:   r.now().Add(r.Config.Billing.ContinuityTrial()),
		Metadata:   metadata,
		IdempotencyKey: r.Keys.GenerateKey(idempotency.ScopeContinuitySub, map[string]interface{}{
			"session_id": session.ID,
		}),
	})
	if err != nil {
		return err
	}
	snap.ExternalCustomerID = lo.CoalesceOrEmpty(snap.ExternalCustomerID, session.Customer)

	sub, _, err := r.subs.EnsureFromProvider(ctx, snap, owner)
	if err != nil {
		return err
	}
	if item != nil && lo.FromPtr(item.SubscriptionID) != sub.ID {
		if err := r.OrderItemRepo.SetSubscription(ctx, item.ID, sub.ID); err != nil {
			return err
		}
	}
	r.Logger.WithContext(ctx).Infow("started continuity subscription",
		"subscription_id", sub.ID,
		"external_subscription_id", sub.ExternalSubscriptionID,
		"trial_end", lo.FromPtr(sub.TrialEnd),
	)
	return nil
}

// resolvePurchaser prefers the metadata user, then the user of an order
// already recorded for the session, then provisions a guest by email
func (r *entitlementRouter) resolvePurchaser(ctx context.Context, session *webhook.CheckoutSession) (string, error) {
	if userID := session.Metadata.Lookup(types.MetadataKeyUserID); !types.IsGuestUserID(userID) {
		return userID, nil
	}

	existing, err := r.OrderRepo.GetBySessionID(ctx, session.ID)
	if err == nil {
		return existing.UserID, nil
	}
	if !ierr.IsNotFound(err) {
		return "", err
	}

	return r.guests.ResolveUser(ctx, "", session.Email())
}

func (r *entitlementRouter) orderDraft(session *webhook.CheckoutSession, userID string, amount int64) *order.Order {
	return &order.Order{
		UserID:          userID,
		PaymentIntentID: lo.EmptyableToPtr(session.PaymentIntent),
		TotalAmount:     amount,
		Currency:        session.Currency,
		PromoCode:       lo.EmptyableToPtr(session.Metadata.Lookup(types.MetadataKeyPromoCode)),
		ReferralSource:  lo.EmptyableToPtr(session.Metadata.Lookup(types.MetadataKeyReferralSource)),
		CampaignName:    lo.EmptyableToPtr(session.Metadata.Lookup(types.MetadataKeyCampaignName)),
		Metadata: session.Metadata.Merge(types.Metadata{
			types.MetadataKeyPurchaseType: string(session.PurchaseType()),
		}),
	}
}

// checkoutPriceID returns the price of the first checkout line, or empty
// when the provider cannot list them
func (r *entitlementRouter) checkoutPriceID(ctx context.Context, session *webhook.CheckoutSession) string {
	items, err := r.Provider.ListCheckoutLineItems(ctx, session.ID)
	if err != nil {
		r.Logger.WithContext(ctx).Warnw("failed to list checkout line items",
			"session_id", session.ID,
			"error", err,
		)
		return ""
	}
	if len(items) == 0 {
		return ""
	}
	return items[0].PriceID
}

func parseQuantity(raw string) int64 {
	q, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || q <= 0 {
		return 1
	}
	return q
}

func missingMetadata(session *webhook.CheckoutSession, key string) error {
	return ierr.NewErrorf("checkout metadata %s is missing", key).
		WithHintf("Checkout session metadata must include %s", key).
		WithReportableDetails(map[string]any{
			"session_id": session.ID,
			"key":        key,
		}).
		Mark(ierr.ErrValidation)
}
