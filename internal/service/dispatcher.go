package service

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/subscription"
	"github.com/flexprice/reconciler/internal/domain/webhook"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
)

// WebhookDispatcher routes a verified event to its branch
type WebhookDispatcher interface {
	// Dispatch returns an error only for internal failures the provider should
	// redeliver. Branch failures are reported and acknowledged.
	Dispatch(ctx context.Context, event *webhook.Event) error
}

type webhookDispatcher struct {
	ServiceParams
	router   EntitlementRouter
	subs     SubscriptionReconciler
	storage  StorageService
	invoices InvoiceService
	steps    *stepRunner
}

func NewWebhookDispatcher(
	params ServiceParams,
	router EntitlementRouter,
	subs SubscriptionReconciler,
	storage StorageService,
	invoices InvoiceService,
) WebhookDispatcher {
	return &webhookDispatcher{
		ServiceParams: params,
		router:        router,
		subs:          subs,
		storage:       storage,
		invoices:      invoices,
		steps:         newStepRunner(params),
	}
}

func (d *webhookDispatcher) Dispatch(ctx context.Context, event *webhook.Event) error {
	ctx = types.SetEvent(ctx, event.ID, event.Type)
	log := d.Logger.WithContext(ctx)
	d.Sentry.AddBreadcrumb("webhook", string(event.Type), map[string]interface{}{
		"event_id": event.ID,
	})

	if !event.Type.IsHandled() {
		log.Infow("ignoring unhandled webhook event")
		return nil
	}
	log.Infow("processing webhook event")

	var err error
	switch event.Type {
	case types.WebhookEventTypeCheckoutSessionCompleted:
		err = d.handleCheckoutCompleted(ctx, event)
	case types.WebhookEventTypeSubscriptionCreated:
		err = d.handleSubscriptionCreated(ctx, event)
	case types.WebhookEventTypeSubscriptionUpdated:
		err = d.handleSubscriptionUpdated(ctx, event)
	case types.WebhookEventTypeSubscriptionDeleted:
		err = d.handleSubscriptionDeleted(ctx, event)
	case types.WebhookEventTypeSubscriptionTrialWillEnd:
		err = d.handleTrialWillEnd(ctx, event)
	case types.WebhookEventTypeInvoicePaymentSucceeded:
		err = d.handleInvoice(ctx, event, d.invoices.HandlePaymentSucceeded)
	case types.WebhookEventTypeInvoicePaymentFailed:
		err = d.handleInvoice(ctx, event, d.invoices.HandlePaymentFailed)
	case types.WebhookEventTypeCustomerUpdated:
		err = d.handleCustomerUpdated(ctx, event)
	}
	return err
}

// escalate keeps only failures that a redelivery can fix
func escalate(err error) error {
	if err == nil {
		return nil
	}
	if ierr.IsDatabase(err) || ierr.IsSystem(err) {
		return err
	}
	return nil
}

func (d *webhookDispatcher) handleCheckoutCompleted(ctx context.Context, event *webhook.Event) error {
	session, err := webhook.DecodeCheckoutSession(event.Data)
	if err != nil {
		return err
	}
	branch := "checkout_" + string(session.PurchaseType())
	return escalate(d.steps.Run(ctx, branch, func(ctx context.Context) error {
		return d.router.HandleCheckoutCompleted(ctx, session)
	}))
}

// handleSubscriptionCreated only mirrors rows that a checkout already
// inserted. The checkout knows the user and tier; this event does not.
func (d *webhookDispatcher) handleSubscriptionCreated(ctx context.Context, event *webhook.Event) error {
	payload, err := webhook.DecodeSubscription(event.Data)
	if err != nil {
		return err
	}
	return escalate(d.steps.Run(ctx, "subscription_created", func(ctx context.Context) error {
		_, _, err := d.subs.ApplyUpdate(ctx, payload.Snapshot())
		return err
	}))
}

func (d *webhookDispatcher) handleSubscriptionUpdated(ctx context.Context, event *webhook.Event) error {
	payload, err := webhook.DecodeSubscription(event.Data)
	if err != nil {
		return err
	}
	snap := payload.Snapshot()
	return escalate(d.steps.Run(ctx, "subscription_updated", func(ctx context.Context) error {
		sub, applied, err := d.subs.ApplyUpdate(ctx, snap)
		if err != nil || !applied {
			return err
		}
		_, err = d.storage.ReconcileStorageAddons(ctx, StorageAddonRequest{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			ActivePriceIDs: snap.PriceIDs,
		})
		return err
	}))
}

func (d *webhookDispatcher) handleSubscriptionDeleted(ctx context.Context, event *webhook.Event) error {
	payload, err := webhook.DecodeSubscription(event.Data)
	if err != nil {
		return err
	}
	return escalate(d.steps.Run(ctx, "subscription_deleted", func(ctx context.Context) error {
		sub, err := d.subs.Cancel(ctx, payload.Snapshot())
		if err != nil || sub == nil {
			return err
		}
		_, err = d.storage.ReconcileStorageAddons(ctx, StorageAddonRequest{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
		})
		return err
	}))
}

func (d *webhookDispatcher) handleTrialWillEnd(ctx context.Context, event *webhook.Event) error {
	payload, err := webhook.DecodeSubscription(event.Data)
	if err != nil {
		return err
	}

	log := d.Logger.WithContext(ctx).With(
		"external_subscription_id", payload.ID,
		"trial_end", webhook.UnixTimePtr(payload.TrialEnd),
	)
	sub, err := d.SubRepo.GetByExternalID(ctx, payload.ID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return escalate(err)
		}
		log.Infow("trial ending for unknown subscription")
		return nil
	}
	log.Infow("trial ending", "subscription_id", sub.ID, "user_id", sub.UserID)
	return nil
}

func (d *webhookDispatcher) handleInvoice(ctx context.Context, event *webhook.Event, handle func(context.Context, *webhook.Invoice) error) error {
	inv, err := webhook.DecodeInvoice(event.Data)
	if err != nil {
		return err
	}
	return escalate(d.steps.Run(ctx, string(event.Type), func(ctx context.Context) error {
		return handle(ctx, inv)
	}))
}

func (d *webhookDispatcher) handleCustomerUpdated(ctx context.Context, event *webhook.Event) error {
	customer, err := webhook.DecodeCustomer(event.Data)
	if err != nil {
		return err
	}

	subs, err := d.SubRepo.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return escalate(err)
	}
	d.Logger.WithContext(ctx).Infow("customer updated",
		"customer_id", customer.ID,
		"email", customer.Email,
		"user_ids", lo.Uniq(lo.Map(subs, func(s *subscription.Subscription, _ int) string { return s.UserID })),
	)
	return nil
}
