package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/flexprice/reconciler/internal/domain/household"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
)

// HouseholdService creates the shared household of a plan and its admin seat
type HouseholdService interface {
	// CreateHousehold returns the admin's household, creating it when absent.
	// Profile and membership updates are best effort.
	CreateHousehold(ctx context.Context, req HouseholdRequest) (*household.Household, error)
}

// HouseholdRequest describes the household of one admin. A zero MaxMembers
// takes the configured seat count of the plan type.
type HouseholdRequest struct {
	AdminUserID string
	NameHint    string
	PlanType    types.PlanType
	MaxMembers  int
}

type householdService struct {
	ServiceParams
	steps *stepRunner
}

func NewHouseholdService(params ServiceParams) HouseholdService {
	return &householdService{ServiceParams: params, steps: newStepRunner(params)}
}

func (s *householdService) CreateHousehold(ctx context.Context, req HouseholdRequest) (*household.Household, error) {
	adminUserID, planType := req.AdminUserID, req.PlanType
	if adminUserID == "" {
		return nil, ierr.NewError("household admin is required").
			WithHint("A household must have an admin user").
			Mark(ierr.ErrValidation)
	}

	h, created, err := ensure(ctx, "household",
		func(ctx context.Context) (*household.Household, error) {
			return s.HouseholdRepo.GetByAdmin(ctx, adminUserID)
		},
		func(ctx context.Context) (*household.Household, error) {
			h := &household.Household{
				ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_HOUSEHOLD),
				AdminUserID:         adminUserID,
				Name:                householdName(req.NameHint),
				PlanType:            planType,
				MaxMembers:          s.maxMembers(req),
				SharedTokensEnabled: true,
				SubscriptionStatus:  types.SubscriptionStatusTrialing,
				CreatedAt:           s.now(),
			}
			if err := s.HouseholdRepo.Create(ctx, h); err != nil {
				return nil, err
			}
			return h, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if !created {
		return h, nil
	}

	s.Logger.WithContext(ctx).Infow("created household",
		"household_id", h.ID,
		"admin_user_id", adminUserID,
		"plan_type", planType,
		"max_members", h.MaxMembers,
	)

	_ = s.steps.Run(ctx, "household_profile", func(ctx context.Context) error {
		return s.UserRepo.SetHousehold(ctx, adminUserID, h.ID, true)
	})
	_ = s.steps.Run(ctx, "household_admin_member", func(ctx context.Context) error {
		err := s.HouseholdRepo.AddMember(ctx, &household.Member{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_HOUSEHOLD_MEMBER),
			HouseholdID: h.ID,
			UserID:      adminUserID,
			Role:        types.HouseholdRoleAdmin,
			Status:      types.HouseholdMemberStatusActive,
			JoinedAt:    s.now(),
		})
		if ierr.IsAlreadyExists(err) {
			return nil
		}
		return err
	})
	return h, nil
}

func (s *householdService) maxMembers(req HouseholdRequest) int {
	if req.MaxMembers > 0 {
		return req.MaxMembers
	}
	if req.PlanType == types.PlanTypeHousehold {
		return s.Config.Billing.HouseholdMaxMembers
	}
	return s.Config.Billing.SoloMaxMembers
}

func householdName(hint string) string {
	hint = strings.TrimSpace(hint)
	if i := strings.Index(hint, "@"); i > 0 {
		hint = hint[:i]
	}
	if hint == "" {
		return "My Household"
	}
	return fmt.Sprintf("%s's Household", hint)
}
