package testutil

import (
	"context"
	"strings"

	"github.com/flexprice/reconciler/internal/domain/user"
	"github.com/samber/lo"
)

// InMemoryUserStore implements user.Repository keyed by user id
type InMemoryUserStore struct {
	*InMemoryStore[user.Profile]
	// FailSetHousehold makes SetHousehold return this error when set
	FailSetHousehold error
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[user.Profile](),
	}
}

func (s *InMemoryUserStore) Create(ctx context.Context, p *user.Profile) error {
	profile := *p
	profile.Email = strings.ToLower(profile.Email)
	return s.CreateUnique(ctx, p.UserID, profile, func(existing user.Profile) bool {
		return profile.Email != "" && existing.Email == profile.Email
	})
}

func (s *InMemoryUserStore) Get(ctx context.Context, userID string) (*user.Profile, error) {
	p, err := s.InMemoryStore.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *InMemoryUserStore) GetByEmail(ctx context.Context, email string) (*user.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := s.Find(ctx, func(p user.Profile) bool { return p.Email == email })
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *InMemoryUserStore) SetHousehold(ctx context.Context, userID, householdID string, isAdmin bool) error {
	if s.FailSetHousehold != nil {
		return s.FailSetHousehold
	}
	p, err := s.InMemoryStore.Get(ctx, userID)
	if err != nil {
		return err
	}
	p.HouseholdID = lo.ToPtr(householdID)
	p.IsHouseholdAdmin = isAdmin
	return s.Update(ctx, userID, p)
}
