package household

import (
	"time"

	"github.com/flexprice/reconciler/internal/types"
)

// Household groups users that share one plan's seats and tokens
type Household struct {
	ID string `db:"id" json:"id"`
	// AdminUserID owns the household; one household per admin
	AdminUserID         string                   `db:"admin_user_id" json:"admin_user_id"`
	Name                string                   `db:"name" json:"name"`
	PlanType            types.PlanType           `db:"plan_type" json:"plan_type"`
	MaxMembers          int                      `db:"max_members" json:"max_members"`
	SharedTokensEnabled bool                     `db:"shared_tokens_enabled" json:"shared_tokens_enabled"`
	SubscriptionStatus  types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	CreatedAt           time.Time                `db:"created_at" json:"created_at"`
}

// Member is one user's seat in a household
type Member struct {
	ID          string                      `db:"id" json:"id"`
	HouseholdID string                      `db:"household_id" json:"household_id"`
	UserID      string                      `db:"user_id" json:"user_id"`
	Role        types.HouseholdRole         `db:"role" json:"role"`
	Status      types.HouseholdMemberStatus `db:"status" json:"status"`
	JoinedAt    time.Time                   `db:"joined_at" json:"joined_at"`
}
