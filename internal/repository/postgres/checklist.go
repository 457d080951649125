package postgres

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/intensive"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
)

type checklistRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewChecklistRepository(db *postgres.DB, logger *logger.Logger) intensive.Repository {
	return &checklistRepository{db: db, logger: logger}
}

func (r *checklistRepository) Create(ctx context.Context, c *intensive.Checklist) error {
	query := `
		INSERT INTO intensive_checklists (id, order_item_id, user_id, status, created_at)
		VALUES (:id, :order_item_id, :user_id, :status, :created_at)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c); err != nil {
		return writeError(err, "intensive checklist", map[string]any{"order_item_id": c.OrderItemID})
	}
	return nil
}

func (r *checklistRepository) GetByOrderItem(ctx context.Context, orderItemID string) (*intensive.Checklist, error) {
	query := `SELECT id, order_item_id, user_id, status, created_at FROM intensive_checklists WHERE order_item_id = $1`

	var c intensive.Checklist
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, orderItemID); err != nil {
		return nil, readError(err, "intensive checklist", map[string]any{"order_item_id": orderItemID})
	}
	return &c, nil
}
