package service

import (
	"errors"
	"testing"

	"github.com/flexprice/reconciler/internal/domain/user"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/stretchr/testify/suite"
)

type GuestProvisionerSuite struct {
	reconcilerTestSuite
}

func TestGuestProvisioner(t *testing.T) {
	suite.Run(t, new(GuestProvisionerSuite))
}

func (s *GuestProvisionerSuite) TestKnownUserIsReturnedAsIs() {
	id, err := s.guests.ResolveUser(s.GetContext(), " u1 ", "")
	s.NoError(err)
	s.Equal("u1", id)
	s.Zero(s.GetStores().Identity.Users())
}

func (s *GuestProvisionerSuite) TestExistingProfileIsReused() {
	ctx := s.GetContext()
	s.Require().NoError(s.GetStores().UserRepo.Create(ctx, &user.Profile{UserID: "u9", Email: "a@b.com"}))

	id, err := s.guests.ResolveUser(ctx, "guest", "A@B.com")
	s.NoError(err)
	s.Equal("u9", id)
	s.Zero(s.GetStores().Identity.Users())
	s.Empty(s.GetStores().Identity.Links())
}

func (s *GuestProvisionerSuite) TestGuestIsProvisioned() {
	ctx := s.GetContext()
	stores := s.GetStores()

	id, err := s.guests.ResolveUser(ctx, "", "new@example.com")
	s.Require().NoError(err)
	s.NotEmpty(id)

	profile, err := stores.UserRepo.GetByEmail(ctx, "new@example.com")
	s.NoError(err)
	s.Equal(id, profile.UserID)
	s.Len(stores.Identity.Links(), 1)

	again, err := s.guests.ResolveUser(ctx, "", "new@example.com")
	s.NoError(err)
	s.Equal(id, again)
	s.Equal(1, stores.Identity.Users())
}

func (s *GuestProvisionerSuite) TestLinkFailureDoesNotFailProvisioning() {
	s.GetStores().Identity.LinkErr = errors.New("smtp down")

	id, err := s.guests.ResolveUser(s.GetContext(), "", "c@d.com")
	s.NoError(err)
	s.NotEmpty(id)
}

func (s *GuestProvisionerSuite) TestGuestWithoutEmail() {
	_, err := s.guests.ResolveUser(s.GetContext(), "guest", " ")
	s.True(ierr.IsValidation(err))
}

func (s *GuestProvisionerSuite) TestIdentityFailureIsReturned() {
	s.GetStores().Identity.CreateErr = errors.New("identity unavailable")

	_, err := s.guests.ResolveUser(s.GetContext(), "", "e@f.com")
	s.Error(err)
	s.Zero(s.GetStores().UserRepo.Count(s.GetContext(), nil))
}
