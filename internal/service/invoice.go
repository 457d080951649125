package service

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/payment"
	"github.com/flexprice/reconciler/internal/domain/subscription"
	"github.com/flexprice/reconciler/internal/domain/webhook"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/samber/lo"
)

const (
	defaultPaidDescription   = "Subscription payment"
	defaultFailedDescription = "Payment failed"
)

// InvoiceService records payment history and applies what a paid renewal grants
type InvoiceService interface {
	HandlePaymentSucceeded(ctx context.Context, inv *webhook.Invoice) error
	HandlePaymentFailed(ctx context.Context, inv *webhook.Invoice) error
}

type invoiceService struct {
	ServiceParams
	storage StorageService
	steps   *stepRunner
}

func NewInvoiceService(params ServiceParams, storage StorageService) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		storage:       storage,
		steps:         newStepRunner(params),
	}
}

func (s *invoiceService) HandlePaymentSucceeded(ctx context.Context, inv *webhook.Invoice) error {
	sub, err := s.localSubscription(ctx, inv)
	if err != nil || sub == nil {
		return err
	}

	record, created, err := s.ensureRecord(ctx, sub, inv, types.PaymentStatusSucceeded)
	if err != nil {
		return err
	}
	log := s.Logger.WithContext(ctx).With(
		"invoice_id", inv.ID,
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
	)
	if created {
		log.Infow("recorded payment", "amount", record.Amount, "billing_reason", record.BillingReason)
	}

	if created && record.BillingReason.IsRenewal() {
		_ = s.steps.Run(ctx, "renewal_tokens", func(ctx context.Context) error {
			cycle, err := s.PaymentRepo.CountSucceededBySubscription(ctx, sub.ID)
			if err != nil {
				return err
			}
			log.Infow("granting renewal tokens", "cycle", cycle, "price_id", sub.PriceID)
			return s.Ledger.GrantForPrice(ctx, sub.UserID, sub.PriceID, sub.ID, cycle)
		})
	}

	if sub.IsCanceled() {
		log.Infow("skipping storage add-ons of canceled subscription")
		return nil
	}
	_ = s.steps.Run(ctx, "storage_addons", func(ctx context.Context) error {
		priceIDs, err := s.activePriceIDs(ctx, sub, inv)
		if err != nil {
			return err
		}
		_, err = s.storage.ReconcileStorageAddons(ctx, StorageAddonRequest{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			ActivePriceIDs: priceIDs,
			GrantMissing:   true,
		})
		return err
	})
	return nil
}

func (s *invoiceService) HandlePaymentFailed(ctx context.Context, inv *webhook.Invoice) error {
	sub, err := s.localSubscription(ctx, inv)
	if err != nil || sub == nil {
		return err
	}

	record, created, err := s.ensureRecord(ctx, sub, inv, types.PaymentStatusFailed)
	if err != nil {
		return err
	}
	if created {
		s.Logger.WithContext(ctx).Warnw("recorded failed payment",
			"invoice_id", inv.ID,
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"amount_due", record.Amount,
		)
	}
	return nil
}

// activePriceIDs returns the prices the subscription currently bills. Only
// create and cycle invoices carry the full set; for any other invoice the
// provider subscription is read.
func (s *invoiceService) activePriceIDs(ctx context.Context, sub *subscription.Subscription, inv *webhook.Invoice) ([]string, error) {
	if !types.BillingReason(inv.BillingReason).ListsAllLines() {
		snap, err := s.Provider.RetrieveSubscription(ctx, sub.ExternalSubscriptionID)
		if err != nil {
			return nil, err
		}
		return snap.PriceIDs, nil
	}
	if inv.Lines.HasMore {
		return s.Provider.ListInvoicePriceIDs(ctx, inv.ID)
	}
	return inv.LinePriceIDs(), nil
}

// localSubscription returns nil when the invoice bills no mirrored subscription
func (s *invoiceService) localSubscription(ctx context.Context, inv *webhook.Invoice) (*subscription.Subscription, error) {
	externalID := inv.SubscriptionID()
	if externalID == "" {
		s.Logger.WithContext(ctx).Infow("ignoring invoice without subscription", "invoice_id", inv.ID)
		return nil, nil
	}

	sub, err := s.SubRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.WithContext(ctx).Warnw("no local subscription for invoice",
				"invoice_id", inv.ID,
				"external_subscription_id", externalID,
			)
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (s *invoiceService) ensureRecord(ctx context.Context, sub *subscription.Subscription, inv *webhook.Invoice, status types.PaymentStatus) (*payment.Record, bool, error) {
	return ensure(ctx, "payment",
		func(ctx context.Context) (*payment.Record, error) {
			return s.PaymentRepo.GetByInvoice(ctx, inv.ID, status)
		},
		func(ctx context.Context) (*payment.Record, error) {
			now := s.now()
			record := &payment.Record{
				ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
				UserID:            sub.UserID,
				SubscriptionID:    sub.ID,
				ExternalInvoiceID: inv.ID,
				PaymentIntentID:   lo.EmptyableToPtr(inv.PaymentIntent),
				Currency:          lo.CoalesceOrEmpty(inv.Currency, s.Config.Billing.DefaultCurrency),
				Status:            status,
				BillingReason:     types.BillingReason(inv.BillingReason),
				CreatedAt:         now,
			}
			if status == types.PaymentStatusSucceeded {
				record.Amount = inv.AmountPaid
				record.Description = lo.CoalesceOrEmpty(inv.Description, defaultPaidDescription)
				record.PaidAt = lo.CoalesceOrEmpty(webhook.UnixTimePtr(inv.StatusTransitions.PaidAt), &now)
			} else {
				record.Amount = inv.AmountDue
				record.Description = defaultFailedDescription
			}
			if err := s.PaymentRepo.Create(ctx, record); err != nil {
				return nil, err
			}
			return record, nil
		},
	)
}
