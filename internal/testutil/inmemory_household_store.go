package testutil

import (
	"context"

	"github.com/flexprice/reconciler/internal/domain/household"
	"github.com/samber/lo"
)

// InMemoryHouseholdStore implements household.Repository
type InMemoryHouseholdStore struct {
	*InMemoryStore[household.Household]
	members *InMemoryStore[household.Member]
	// FailCreate makes Create return this error when set
	FailCreate error
	// FailAddMember makes AddMember return this error when set
	FailAddMember error
}

func NewInMemoryHouseholdStore() *InMemoryHouseholdStore {
	return &InMemoryHouseholdStore{
		InMemoryStore: NewInMemoryStore[household.Household](),
		members:       NewInMemoryStore[household.Member](),
	}
}

func (s *InMemoryHouseholdStore) Create(ctx context.Context, h *household.Household) error {
	if s.FailCreate != nil {
		return s.FailCreate
	}
	return s.CreateUnique(ctx, h.ID, *h, func(existing household.Household) bool {
		return existing.AdminUserID == h.AdminUserID
	})
}

func (s *InMemoryHouseholdStore) GetByAdmin(ctx context.Context, adminUserID string) (*household.Household, error) {
	h, err := s.Find(ctx, func(h household.Household) bool { return h.AdminUserID == adminUserID })
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *InMemoryHouseholdStore) AddMember(ctx context.Context, m *household.Member) error {
	if s.FailAddMember != nil {
		return s.FailAddMember
	}
	return s.members.CreateUnique(ctx, m.ID, *m, func(existing household.Member) bool {
		return existing.HouseholdID == m.HouseholdID && existing.UserID == m.UserID
	})
}

func (s *InMemoryHouseholdStore) ListMembers(ctx context.Context, householdID string) ([]*household.Member, error) {
	members := s.members.List(ctx, func(m household.Member) bool { return m.HouseholdID == householdID }, nil)
	return lo.ToSlicePtr(members), nil
}

// Clear removes households and members
func (s *InMemoryHouseholdStore) Clear() {
	s.InMemoryStore.Clear()
	s.members.Clear()
}
