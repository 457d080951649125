package postgres

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/household"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
)

type householdRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewHouseholdRepository(db *postgres.DB, logger *logger.Logger) household.Repository {
	return &householdRepository{db: db, logger: logger}
}

func (r *householdRepository) Create(ctx context.Context, h *household.Household) error {
	query := `
		INSERT INTO households (
			id,
			admin_user_id,
			name,
			plan_type,
			max_members,
			shared_tokens_enabled,
			subscription_status,
			created_at
		) VALUES (
			:id,
			:admin_user_id,
			:name,
			:plan_type,
			:max_members,
			:shared_tokens_enabled,
			:subscription_status,
			:created_at
		)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, h); err != nil {
		return writeError(err, "household", map[string]any{"admin_user_id": h.AdminUserID})
	}
	return nil
}

func (r *householdRepository) GetByAdmin(ctx context.Context, adminUserID string) (*household.Household, error) {
	query := `
		SELECT id, admin_user_id, name, plan_type, max_members, shared_tokens_enabled,
			subscription_status, created_at
		FROM households WHERE admin_user_id = $1`

	var h household.Household
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &h, query, adminUserID); err != nil {
		return nil, readError(err, "household", map[string]any{"admin_user_id": adminUserID})
	}
	return &h, nil
}

func (r *householdRepository) AddMember(ctx context.Context, m *household.Member) error {
	query := `
		INSERT INTO household_members (id, household_id, user_id, role, status, joined_at)
		VALUES (:id, :household_id, :user_id, :role, :status, :joined_at)
	`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, m); err != nil {
		return writeError(err, "household member", map[string]any{
			"household_id": m.HouseholdID,
			"user_id":      m.UserID,
		})
	}
	return nil
}

func (r *householdRepository) ListMembers(ctx context.Context, householdID string) ([]*household.Member, error) {
	query := `
		SELECT id, household_id, user_id, role, status, joined_at
		FROM household_members WHERE household_id = $1 ORDER BY joined_at`

	var members []*household.Member
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &members, query, householdID); err != nil {
		return nil, readError(err, "household members", map[string]any{"household_id": householdID})
	}
	return members, nil
}
