package supabase

import (
	"context"
	"strings"

	"github.com/flexprice/reconciler/internal/config"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/logger"
	supabasego "github.com/nedpals/supabase-go"
)

const magicLinkType = "magiclink"

// IdentityProvider provisions guest purchasers through the Supabase admin API
type IdentityProvider struct {
	client *supabasego.Client
	logger *logger.Logger
}

var _ interfaces.IdentityProvider = (*IdentityProvider)(nil)

func NewIdentityProvider(cfg *config.Configuration, logger *logger.Logger) *IdentityProvider {
	client := supabasego.CreateClient(cfg.Supabase.BaseURL, cfg.Supabase.ServiceKey)
	if client == nil {
		logger.Errorw("failed to create supabase client", "base_url", cfg.Supabase.BaseURL)
	}
	return &IdentityProvider{client: client, logger: logger}
}

// CreateUser creates a confirmed account for email and returns its id
func (p *IdentityProvider) CreateUser(ctx context.Context, email string) (string, error) {
	if p.client == nil {
		return "", ierr.NewError("identity provider is not configured").
			WithHint("Supabase client is unavailable").
			Mark(ierr.ErrConfiguration)
	}

	user, err := p.client.Admin.CreateUser(ctx, supabasego.AdminUserParams{
		Email:        strings.ToLower(email),
		EmailConfirm: true,
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to create user account").
			WithReportableDetails(map[string]any{"email": email}).
			Mark(ierr.ErrHTTPClient)
	}
	if user == nil || user.ID == "" {
		return "", ierr.NewError("identity provider returned no user id").
			WithHint("Failed to create user account").
			Mark(ierr.ErrHTTPClient)
	}

	p.logger.Infow("created guest user account", "user_id", user.ID)
	return user.ID, nil
}

// CreateSignInLink issues a magic link that lands on redirectTo
func (p *IdentityProvider) CreateSignInLink(ctx context.Context, email, redirectTo string) (string, error) {
	if p.client == nil {
		return "", ierr.NewError("identity provider is not configured").
			WithHint("Supabase client is unavailable").
			Mark(ierr.ErrConfiguration)
	}

	resp, err := p.client.Admin.GenerateLink(ctx, supabasego.GenerateLinkParams{
		Type:       magicLinkType,
		Email:      strings.ToLower(email),
		RedirectTo: redirectTo,
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate sign-in link").
			WithReportableDetails(map[string]any{"email": email}).
			Mark(ierr.ErrHTTPClient)
	}
	return resp.ActionLink, nil
}
