package household

import (
	"context"
)

type Repository interface {
	// Create returns ErrAlreadyExists when the admin already owns a household
	Create(ctx context.Context, h *Household) error
	GetByAdmin(ctx context.Context, adminUserID string) (*Household, error)
	// AddMember returns ErrAlreadyExists for a duplicate (household, user)
	AddMember(ctx context.Context, m *Member) error
	ListMembers(ctx context.Context, householdID string) ([]*Member, error)
}
