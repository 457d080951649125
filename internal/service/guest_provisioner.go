package service

import (
	"context"
	"strings"

	"github.com/flexprice/reconciler/internal/domain/user"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/types"
)

// setupPasswordPath is where guest sign-in links land
const setupPasswordPath = "/auth/setup-password?intensive=true"

// GuestProvisioner turns a guest purchaser into an account
type GuestProvisioner interface {
	// ResolveUser returns existingUserID unless it is empty or the guest
	// placeholder. Otherwise the account is found or created by email.
	ResolveUser(ctx context.Context, existingUserID, email string) (string, error)
}

type guestProvisioner struct {
	ServiceParams
}

func NewGuestProvisioner(params ServiceParams) GuestProvisioner {
	return &guestProvisioner{ServiceParams: params}
}

func (s *guestProvisioner) ResolveUser(ctx context.Context, existingUserID, email string) (string, error) {
	if !types.IsGuestUserID(existingUserID) {
		return strings.TrimSpace(existingUserID), nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ierr.NewError("guest purchase has no email").
			WithHint("An email is required to provision a guest purchaser").
			Mark(ierr.ErrValidation)
	}
	log := s.Logger.WithContext(ctx).With("email", email)

	profile, err := s.UserRepo.GetByEmail(ctx, email)
	if err == nil {
		log.Infow("resolved guest purchaser to existing user", "user_id", profile.UserID)
		return profile.UserID, nil
	}
	if !ierr.IsNotFound(err) {
		return "", err
	}

	userID, err := s.Identity.CreateUser(ctx, email)
	if err != nil {
		return "", err
	}
	log = log.With("user_id", userID)
	log.Infow("provisioned user for guest purchase")

	if err := s.UserRepo.Create(ctx, &user.Profile{UserID: userID, Email: email}); err != nil && !ierr.IsAlreadyExists(err) {
		log.Warnw("failed to create profile for provisioned user", "error", err)
	}

	redirectTo := strings.TrimRight(s.Config.Supabase.AppURL, "/") + setupPasswordPath
	if _, err := s.Identity.CreateSignInLink(ctx, email, redirectTo); err != nil {
		log.Warnw("failed to issue sign-in link", "error", err)
	}
	return userID, nil
}
