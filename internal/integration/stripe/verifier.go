package stripe

import (
	"strings"

	"github.com/flexprice/reconciler/internal/config"
	"github.com/flexprice/reconciler/internal/domain/webhook"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/types"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
)

// Verifier authenticates raw webhook payloads against the endpoint secret
type Verifier struct {
	secret string
	logger *logger.Logger
}

func NewVerifier(cfg *config.Configuration, logger *logger.Logger) *Verifier {
	return &Verifier{secret: cfg.Stripe.WebhookSecret, logger: logger}
}

// Verify checks the signature header and returns the typed event. A missing
// secret is a configuration error, any signature problem is ErrSignature.
func (v *Verifier) Verify(payload []byte, signature string) (*webhook.Event, error) {
	if strings.TrimSpace(v.secret) == "" {
		return nil, ierr.NewError("webhook secret is not configured").
			WithHint("Webhook endpoint is misconfigured").
			Mark(ierr.ErrConfiguration)
	}
	if strings.TrimSpace(signature) == "" {
		return nil, ierr.NewError("missing webhook signature").
			WithHint("Stripe-Signature header is required").
			Mark(ierr.ErrSignature)
	}

	event, err := stripewebhook.ConstructEventWithOptions(payload, signature, v.secret, stripewebhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		v.logger.Warnw("webhook signature verification failed", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrSignature)
	}

	out := &webhook.Event{
		ID:      event.ID,
		Type:    types.WebhookEventType(event.Type),
		Created: webhook.UnixTime(event.Created),
	}
	if event.Data != nil {
		out.Data = event.Data.Raw
	}
	return out, nil
}
