package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/types"
)

var _ interfaces.IdentityProvider = (*FakeIdentity)(nil)

// SignInLink is a link issued by FakeIdentity
type SignInLink struct {
	Email      string
	RedirectTo string
}

// FakeIdentity is an in-memory identity provider
type FakeIdentity struct {
	mu    sync.Mutex
	users map[string]string
	links []SignInLink

	// LinkErr fails CreateSignInLink when set
	LinkErr error
	// CreateErr fails CreateUser when set
	CreateErr error
}

func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{users: make(map[string]string)}
}

func (f *FakeIdentity) CreateUser(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	email = strings.ToLower(email)
	if id, ok := f.users[email]; ok {
		return id, nil
	}
	id := types.GenerateUUIDWithPrefix("usr")
	f.users[email] = id
	return id, nil
}

func (f *FakeIdentity) CreateSignInLink(_ context.Context, email, redirectTo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.LinkErr != nil {
		return "", f.LinkErr
	}
	f.links = append(f.links, SignInLink{Email: email, RedirectTo: redirectTo})
	return redirectTo + "#token=test", nil
}

// UserID returns the id issued for an email
func (f *FakeIdentity) UserID(email string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.users[strings.ToLower(email)]
	return id, ok
}

// Users returns the number of users created
func (f *FakeIdentity) Users() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// Links returns the sign-in links issued so far
func (f *FakeIdentity) Links() []SignInLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SignInLink(nil), f.links...)
}

func (f *FakeIdentity) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = make(map[string]string)
	f.links = nil
	f.LinkErr = nil
	f.CreateErr = nil
}
