package service

import (
	"testing"
	"time"

	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type SubscriptionReconcilerSuite struct {
	reconcilerTestSuite
}

func TestSubscriptionReconciler(t *testing.T) {
	suite.Run(t, new(SubscriptionReconcilerSuite))
}

func (s *SubscriptionReconcilerSuite) TestEnsureFromProviderIsIdempotent() {
	ctx := s.GetContext()
	snap := s.activeSnapshot("sub_ext_1", priceContinuity)

	first, created, err := s.subs.EnsureFromProvider(ctx, &snap, SubscriptionOwner{UserID: "u1", MembershipTierID: lo.ToPtr("tier_vp28")})
	s.NoError(err)
	s.True(created)
	s.Equal(priceContinuity, first.PriceID)
	s.Equal("tier_vp28", lo.FromPtr(first.MembershipTierID))

	second, created, err := s.subs.EnsureFromProvider(ctx, &snap, SubscriptionOwner{UserID: "someone_else"})
	s.NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)
	s.Equal("u1", second.UserID)
}

func (s *SubscriptionReconcilerSuite) TestApplyUpdate() {
	ctx := s.GetContext()
	sub := s.mustSubscription("sub_ext_1", "u1", priceContinuity)
	trialEnd := sub.CurrentPeriodEnd

	snap := s.activeSnapshot("sub_ext_1", priceFamily)
	snap.Status = types.SubscriptionStatusPastDue
	snap.CancelAtPeriodEnd = true
	snap.TrialEnd = &trialEnd

	updated, applied, err := s.subs.ApplyUpdate(ctx, &snap)
	s.NoError(err)
	s.True(applied)
	s.Equal(types.SubscriptionStatusPastDue, updated.Status)
	s.True(updated.CancelAtPeriodEnd)
	s.Equal(priceFamily, updated.PriceID)

	// omitted trial fields keep their stored values
	snap.TrialEnd = nil
	updated, applied, err = s.subs.ApplyUpdate(ctx, &snap)
	s.NoError(err)
	s.True(applied)
	s.Require().NotNil(updated.TrialEnd)
	s.Equal(trialEnd, *updated.TrialEnd)
}

func (s *SubscriptionReconcilerSuite) TestApplyUpdateWithoutLocalRow() {
	snap := s.activeSnapshot("sub_unknown")
	sub, applied, err := s.subs.ApplyUpdate(s.GetContext(), &snap)
	s.NoError(err)
	s.False(applied)
	s.Nil(sub)
}

func (s *SubscriptionReconcilerSuite) TestCanceledSubscriptionIgnoresLaterUpdates() {
	ctx := s.GetContext()
	s.mustSubscription("sub_ext_1", "u1", priceContinuity)

	snap := s.activeSnapshot("sub_ext_1", priceContinuity)
	canceled, err := s.subs.Cancel(ctx, &snap)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, canceled.Status)
	s.Require().NotNil(canceled.CanceledAt)
	s.WithinDuration(s.GetNow(), *canceled.CanceledAt, time.Second)

	late := s.activeSnapshot("sub_ext_1", priceContinuity)
	sub, applied, err := s.subs.ApplyUpdate(ctx, &late)
	s.NoError(err)
	s.False(applied)
	s.Equal(types.SubscriptionStatusCanceled, sub.Status)

	stored, err := s.GetStores().SubRepo.GetByExternalID(ctx, "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, stored.Status)
}

func (s *SubscriptionReconcilerSuite) TestCancelUnknownSubscription() {
	snap := s.activeSnapshot("sub_unknown")
	sub, err := s.subs.Cancel(s.GetContext(), &snap)
	s.NoError(err)
	s.Nil(sub)
}
