package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/flexprice/reconciler/internal/domain/webhook"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/stretchr/testify/suite"
)

type WebhookDispatcherSuite struct {
	reconcilerTestSuite
}

func TestWebhookDispatcher(t *testing.T) {
	suite.Run(t, new(WebhookDispatcherSuite))
}

func (s *WebhookDispatcherSuite) subscriptionPayload(id, status string, priceIDs ...string) map[string]any {
	items := make([]map[string]any, 0, len(priceIDs))
	for _, p := range priceIDs {
		items = append(items, map[string]any{"price": map[string]any{"id": p}})
	}
	return map[string]any{
		"id":                   id,
		"customer":             "cus_1",
		"status":               status,
		"current_period_start": s.GetNow().Unix(),
		"current_period_end":   s.GetNow().Unix() + 86400,
		"items":                map[string]any{"data": items},
	}
}

func (s *WebhookDispatcherSuite) tokenPackEvent(id string) *webhook.Event {
	return s.event("evt_"+id, types.WebhookEventTypeCheckoutSessionCompleted, map[string]any{
		"id":           id,
		"mode":         "payment",
		"amount_total": 2500,
		"currency":     "usd",
		"metadata": map[string]string{
			"purchase_type": "token_pack",
			"tokens_amount": "1000",
			"user_id":       "u2",
		},
	})
}

func (s *WebhookDispatcherSuite) TestUnhandledEventIsAcknowledged() {
	err := s.dispatcher.Dispatch(s.GetContext(), &webhook.Event{
		ID:   "evt_1",
		Type: types.WebhookEventType("charge.refunded"),
		Data: json.RawMessage(`{"id":"ch_1"}`),
	})
	s.NoError(err)
}

func (s *WebhookDispatcherSuite) TestCheckoutCompleted() {
	ctx := s.GetContext()
	s.NoError(s.dispatcher.Dispatch(ctx, s.tokenPackEvent("cs_2")))
	s.NoError(s.dispatcher.Dispatch(ctx, s.tokenPackEvent("cs_2")))
	s.Len(s.GetStores().Ledger.Entries("purchase"), 1)
}

func (s *WebhookDispatcherSuite) TestEscalation() {
	testCases := []struct {
		name       string
		ledgerErr  error
		wantReturn bool
	}{
		{
			name:       "database_failure_is_redelivered",
			ledgerErr:  ierr.NewError("connection reset").Mark(ierr.ErrDatabase),
			wantReturn: true,
		},
		{
			name:       "system_failure_is_redelivered",
			ledgerErr:  ierr.NewError("unexpected state").Mark(ierr.ErrSystem),
			wantReturn: true,
		},
		{
			name:       "upstream_failure_is_acknowledged",
			ledgerErr:  errors.New("ledger returned 502"),
			wantReturn: false,
		},
		{
			name:       "validation_failure_is_acknowledged",
			ledgerErr:  ierr.NewError("bad grant").Mark(ierr.ErrValidation),
			wantReturn: false,
		},
	}

	for i, tc := range testCases {
		s.Run(tc.name, func() {
			s.GetStores().Ledger.Err = tc.ledgerErr
			defer func() { s.GetStores().Ledger.Err = nil }()

			err := s.dispatcher.Dispatch(s.GetContext(), s.tokenPackEvent("cs_esc_"+string(rune('a'+i))))
			if tc.wantReturn {
				s.Error(err)
			} else {
				s.NoError(err)
			}
		})
	}
}

func (s *WebhookDispatcherSuite) TestMalformedPayloadIsReturned() {
	err := s.dispatcher.Dispatch(s.GetContext(), &webhook.Event{
		ID:   "evt_bad",
		Type: types.WebhookEventTypeCheckoutSessionCompleted,
		Data: json.RawMessage(`{"id":`),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WebhookDispatcherSuite) TestSubscriptionUpdatedPrunesAddons() {
	ctx := s.GetContext()
	sub := s.mustSubscription("sub_ext_1", "u1", priceContinuity, priceAddonA, priceAddonB)
	_, err := s.storage.ReconcileStorageAddons(ctx, StorageAddonRequest{
		SubscriptionID: sub.ID,
		UserID:         "u1",
		ActivePriceIDs: []string{priceAddonA, priceAddonB},
		GrantMissing:   true,
	})
	s.Require().NoError(err)

	payload := s.subscriptionPayload("sub_ext_1", "active", priceContinuity, priceAddonB, priceAddonC)
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_upd", types.WebhookEventTypeSubscriptionUpdated, payload)))

	s.Equal([]string{priceAddonB}, s.GetStores().StorageRepo.AddonPriceIDs(ctx, sub.ID))
}

func (s *WebhookDispatcherSuite) TestDeletedThenUpdatedStaysCanceled() {
	ctx := s.GetContext()
	sub := s.mustSubscription("sub_ext_1", "u1", priceContinuity, priceAddonA)
	_, err := s.storage.ReconcileStorageAddons(ctx, StorageAddonRequest{
		SubscriptionID: sub.ID,
		UserID:         "u1",
		ActivePriceIDs: []string{priceAddonA},
		GrantMissing:   true,
	})
	s.Require().NoError(err)

	deleted := s.subscriptionPayload("sub_ext_1", "active", priceContinuity, priceAddonA)
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_del", types.WebhookEventTypeSubscriptionDeleted, deleted)))
	s.Empty(s.GetStores().StorageRepo.AddonPriceIDs(ctx, sub.ID))

	late := s.subscriptionPayload("sub_ext_1", "active", priceContinuity, priceAddonA)
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_late", types.WebhookEventTypeSubscriptionUpdated, late)))
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_created", types.WebhookEventTypeSubscriptionCreated, late)))

	stored, err := s.GetStores().SubRepo.GetByExternalID(ctx, "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, stored.Status)
	s.Empty(s.GetStores().StorageRepo.AddonPriceIDs(ctx, sub.ID))
}

func (s *WebhookDispatcherSuite) TestSubscriptionCreatedDoesNotInsert() {
	ctx := s.GetContext()
	payload := s.subscriptionPayload("sub_new", "active", priceContinuity)
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_new", types.WebhookEventTypeSubscriptionCreated, payload)))
	s.Zero(s.GetStores().SubRepo.Count(ctx, nil))
}

func (s *WebhookDispatcherSuite) TestInvoiceEvents() {
	ctx := s.GetContext()
	s.mustSubscription("sub_ext_1", "u1", priceContinuity)

	invoice := map[string]any{
		"id":             "in_1",
		"parent":         map[string]any{"subscription_details": map[string]any{"subscription": "sub_ext_1"}},
		"amount_paid":    1999,
		"amount_due":     1999,
		"currency":       "usd",
		"billing_reason": "subscription_cycle",
	}
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_paid", types.WebhookEventTypeInvoicePaymentSucceeded, invoice)))
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_failed", types.WebhookEventTypeInvoicePaymentFailed, invoice)))

	s.Equal(2, s.GetStores().PaymentRepo.Count(ctx, nil))
	s.Len(s.GetStores().Ledger.Entries("price"), 1)
}

func (s *WebhookDispatcherSuite) TestInformationalEvents() {
	ctx := s.GetContext()
	s.mustSubscription("sub_ext_1", "u1", priceContinuity)

	trial := s.subscriptionPayload("sub_ext_1", "trialing", priceContinuity)
	trial["trial_end"] = s.GetNow().Unix() + 3*86400
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_trial", types.WebhookEventTypeSubscriptionTrialWillEnd, trial)))

	unknownTrial := s.subscriptionPayload("sub_other", "trialing")
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_trial_2", types.WebhookEventTypeSubscriptionTrialWillEnd, unknownTrial)))

	customer := map[string]any{"id": "cus_1", "email": "u1@example.com"}
	s.NoError(s.dispatcher.Dispatch(ctx, s.event("evt_cus", types.WebhookEventTypeCustomerUpdated, customer)))

	stored, err := s.GetStores().SubRepo.GetByExternalID(ctx, "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, stored.Status)
}
