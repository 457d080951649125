package postgres

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/payment"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
	"github.com/flexprice/reconciler/internal/types"
)

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Record) error {
	query := `
		INSERT INTO payment_history (
			id,
			user_id,
			subscription_id,
			external_invoice_id,
			payment_intent_id,
			amount,
			currency,
			status,
			billing_reason,
			description,
			paid_at,
			created_at
		) VALUES (
			:id,
			:user_id,
			:subscription_id,
			:external_invoice_id,
			:payment_intent_id,
			:amount,
			:currency,
			:status,
			:billing_reason,
			:description,
			:paid_at,
			:created_at
		)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, p); err != nil {
		return writeError(err, "payment record", map[string]any{
			"external_invoice_id": p.ExternalInvoiceID,
			"status":              p.Status,
		})
	}
	return nil
}

func (r *paymentRepository) GetByInvoice(ctx context.Context, externalInvoiceID string, status types.PaymentStatus) (*payment.Record, error) {
	query := `
		SELECT id, user_id, subscription_id, external_invoice_id, payment_intent_id, amount, currency,
			status, billing_reason, description, paid_at, created_at
		FROM payment_history WHERE external_invoice_id = $1 AND status = $2`

	var p payment.Record
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, externalInvoiceID, status); err != nil {
		return nil, readError(err, "payment record", map[string]any{
			"external_invoice_id": externalInvoiceID,
			"status":              status,
		})
	}
	return &p, nil
}

func (r *paymentRepository) CountSucceededBySubscription(ctx context.Context, subscriptionID string) (int, error) {
	query := `SELECT COUNT(*) FROM payment_history WHERE subscription_id = $1 AND status = $2`

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, subscriptionID, types.PaymentStatusSucceeded); err != nil {
		return 0, readError(err, "payment records", map[string]any{"subscription_id": subscriptionID})
	}
	return count, nil
}
