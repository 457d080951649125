package service

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/subscription"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
)

// SubscriptionOwner carries the local fields a provider snapshot does not know
type SubscriptionOwner struct {
	UserID           string
	MembershipTierID *string
	OrderID          *string
	OrderItemID      *string
}

// SubscriptionReconciler mirrors provider subscriptions into local rows.
// A canceled row is terminal and ignores later lifecycle updates.
type SubscriptionReconciler interface {
	// EnsureFromProvider inserts the mirror row or returns the existing one
	EnsureFromProvider(ctx context.Context, snap *subscription.Snapshot, owner SubscriptionOwner) (*subscription.Subscription, bool, error)
	// ApplyUpdate reports false when no row exists or the row is canceled
	ApplyUpdate(ctx context.Context, snap *subscription.Snapshot) (*subscription.Subscription, bool, error)
	// Cancel forces the canceled status whatever the payload says. Returns nil
	// when no local row mirrors the subscription.
	Cancel(ctx context.Context, snap *subscription.Snapshot) (*subscription.Subscription, error)
}

type subscriptionReconciler struct {
	ServiceParams
}

func NewSubscriptionReconciler(params ServiceParams) SubscriptionReconciler {
	return &subscriptionReconciler{ServiceParams: params}
}

func (s *subscriptionReconciler) EnsureFromProvider(ctx context.Context, snap *subscription.Snapshot, owner SubscriptionOwner) (*subscription.Subscription, bool, error) {
	if snap == nil || snap.ExternalSubscriptionID == "" {
		return nil, false, ierr.NewError("subscription snapshot is empty").
			WithHint("A provider subscription id is required").
			Mark(ierr.ErrValidation)
	}

	return ensure(ctx, "subscription",
		func(ctx context.Context) (*subscription.Subscription, error) {
			return s.SubRepo.GetByExternalID(ctx, snap.ExternalSubscriptionID)
		},
		func(ctx context.Context) (*subscription.Subscription, error) {
			now := s.now()
			sub := &subscription.Subscription{
				ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
				UserID:                 owner.UserID,
				MembershipTierID:       owner.MembershipTierID,
				ExternalCustomerID:     snap.ExternalCustomerID,
				ExternalSubscriptionID: snap.ExternalSubscriptionID,
				PriceID:                snap.PrimaryPriceID(),
				Status:                 snap.Status,
				CurrentPeriodStart:     snap.CurrentPeriodStart,
				CurrentPeriodEnd:       snap.CurrentPeriodEnd,
				TrialStart:             snap.TrialStart,
				TrialEnd:               snap.TrialEnd,
				CancelAtPeriodEnd:      snap.CancelAtPeriodEnd,
				CanceledAt:             snap.CanceledAt,
				OrderID:                owner.OrderID,
				OrderItemID:            owner.OrderItemID,
				CreatedAt:              now,
				UpdatedAt:              now,
			}
			if err := sub.Validate(); err != nil {
				return nil, err
			}
			if err := s.SubRepo.Create(ctx, sub); err != nil {
				return nil, err
			}
			s.Logger.WithContext(ctx).Infow("created subscription",
				"subscription_id", sub.ID,
				"external_subscription_id", sub.ExternalSubscriptionID,
				"user_id", sub.UserID,
				"status", sub.Status,
			)
			return sub, nil
		},
	)
}

func (s *subscriptionReconciler) ApplyUpdate(ctx context.Context, snap *subscription.Snapshot) (*subscription.Subscription, bool, error) {
	log := s.Logger.WithContext(ctx).With("external_subscription_id", snap.ExternalSubscriptionID)

	sub, err := s.SubRepo.GetByExternalID(ctx, snap.ExternalSubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			log.Infow("no local subscription to update")
			return nil, false, nil
		}
		return nil, false, err
	}

	if sub.IsCanceled() {
		log.Infow("ignoring update for canceled subscription",
			"subscription_id", sub.ID,
			"incoming_status", snap.Status,
		)
		return sub, false, nil
	}

	sub.Status = snap.Status
	if !snap.CurrentPeriodStart.IsZero() {
		sub.CurrentPeriodStart = snap.CurrentPeriodStart
	}
	if !snap.CurrentPeriodEnd.IsZero() {
		sub.CurrentPeriodEnd = snap.CurrentPeriodEnd
	}
	sub.TrialStart = lo.Ternary(snap.TrialStart != nil, snap.TrialStart, sub.TrialStart)
	sub.TrialEnd = lo.Ternary(snap.TrialEnd != nil, snap.TrialEnd, sub.TrialEnd)
	sub.CancelAtPeriodEnd = snap.CancelAtPeriodEnd
	sub.CanceledAt = snap.CanceledAt
	sub.PriceID = lo.CoalesceOrEmpty(snap.PrimaryPriceID(), sub.PriceID)
	sub.UpdatedAt = s.now()

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, false, err
	}
	log.Infow("updated subscription",
		"subscription_id", sub.ID,
		"status", sub.Status,
		"cancel_at_period_end", sub.CancelAtPeriodEnd,
	)
	return sub, true, nil
}

func (s *subscriptionReconciler) Cancel(ctx context.Context, snap *subscription.Snapshot) (*subscription.Subscription, error) {
	log := s.Logger.WithContext(ctx).With("external_subscription_id", snap.ExternalSubscriptionID)

	sub, err := s.SubRepo.GetByExternalID(ctx, snap.ExternalSubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			log.Infow("no local subscription to cancel")
			return nil, nil
		}
		return nil, err
	}

	now := s.now()
	sub.Status = types.SubscriptionStatusCanceled
	if sub.CanceledAt == nil {
		sub.CanceledAt = &now
	}
	sub.UpdatedAt = now

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	log.Infow("canceled subscription", "subscription_id", sub.ID)
	return sub, nil
}
