package types

import (
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/samber/lo"
)

// WebhookEventType represents the type of a payment provider webhook event
type WebhookEventType string

const (
	WebhookEventTypeCheckoutSessionCompleted WebhookEventType = "checkout.session.completed"
	WebhookEventTypeSubscriptionCreated      WebhookEventType = "customer.subscription.created"
	WebhookEventTypeSubscriptionUpdated      WebhookEventType = "customer.subscription.updated"
	WebhookEventTypeSubscriptionDeleted      WebhookEventType = "customer.subscription.deleted"
	WebhookEventTypeSubscriptionTrialWillEnd WebhookEventType = "customer.subscription.trial_will_end"
	WebhookEventTypeInvoicePaymentSucceeded  WebhookEventType = "invoice.payment_succeeded"
	WebhookEventTypeInvoicePaymentFailed     WebhookEventType = "invoice.payment_failed"
	WebhookEventTypeCustomerUpdated          WebhookEventType = "customer.updated"
)

// HandledWebhookEventTypes lists every event type the dispatcher routes
var HandledWebhookEventTypes = []WebhookEventType{
	WebhookEventTypeCheckoutSessionCompleted,
	WebhookEventTypeSubscriptionCreated,
	WebhookEventTypeSubscriptionUpdated,
	WebhookEventTypeSubscriptionDeleted,
	WebhookEventTypeSubscriptionTrialWillEnd,
	WebhookEventTypeInvoicePaymentSucceeded,
	WebhookEventTypeInvoicePaymentFailed,
	WebhookEventTypeCustomerUpdated,
}

// IsHandled reports whether the dispatcher has a branch for the type
func (w WebhookEventType) IsHandled() bool {
	return lo.Contains(HandledWebhookEventTypes, w)
}

// Validate validates the webhook event type
func (w WebhookEventType) Validate() error {
	if !w.IsHandled() {
		return ierr.NewError("invalid webhook event type").
			WithHint("Unsupported webhook event type").
			WithReportableDetails(map[string]any{
				"event_type": string(w),
				"allowed":    HandledWebhookEventTypes,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (w WebhookEventType) String() string {
	return string(w)
}
