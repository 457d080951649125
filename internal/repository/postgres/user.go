package postgres

import (
	"context"
	"strings"

	"github.com/flexprice/reconciler/internal/domain/user"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/postgres"
)

type userRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, p *user.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, household_id, is_household_admin)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		p.UserID,
		strings.ToLower(p.Email),
		p.HouseholdID,
		p.IsHouseholdAdmin,
	)
	if err != nil {
		return writeError(err, "profile", map[string]any{"user_id": p.UserID})
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, userID string) (*user.Profile, error) {
	query := `SELECT user_id, email, household_id, is_household_admin FROM profiles WHERE user_id = $1`

	var p user.Profile
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, userID); err != nil {
		return nil, readError(err, "profile", map[string]any{"user_id": userID})
	}
	return &p, nil
}

// GetByEmail matches case-insensitively; emails are stored lowercased
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*user.Profile, error) {
	query := `SELECT user_id, email, household_id, is_household_admin FROM profiles WHERE email = $1 LIMIT 1`

	var p user.Profile
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, strings.ToLower(email)); err != nil {
		return nil, readError(err, "profile", map[string]any{"email": email})
	}
	return &p, nil
}

func (r *userRepository) SetHousehold(ctx context.Context, userID, householdID string, isAdmin bool) error {
	query := `UPDATE profiles SET household_id = $1, is_household_admin = $2 WHERE user_id = $3`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, householdID, isAdmin, userID)
	if err != nil {
		return writeError(err, "profile", map[string]any{"user_id": userID})
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update profile household").
			Mark(ierr.ErrDatabase)
	}
	return notFoundIfNoRowsAffected(affected, "profile", map[string]any{"user_id": userID})
}
