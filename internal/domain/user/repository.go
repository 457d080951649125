package user

import (
	"context"
)

// Repository reads and updates user profiles. Lookups return ErrNotFound.
type Repository interface {
	Create(ctx context.Context, profile *Profile) error
	Get(ctx context.Context, userID string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	SetHousehold(ctx context.Context, userID, householdID string, isAdmin bool) error
}
