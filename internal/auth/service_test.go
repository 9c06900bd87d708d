package auth_test

import (
	"context"
	"errors"
	"testing"

	"levelquiz-service/internal/auth"
	"levelquiz-service/internal/domain"
	"levelquiz-service/internal/infra/memory"
)

func newTestService(provider auth.IdentityProvider) *auth.Service {
	return auth.NewService(memory.NewUserRepository(), provider, auth.Config{
		Secret:        []byte("test-secret"),
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin-pass",
	}, nil)
}

func TestRegisterLoginResolveRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil)

	actor, token, err := svc.Register(ctx, "Alice", "Alice@Example.com", "secret1", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if actor.Kind != domain.ActorLocal || actor.Email != "alice@example.com" {
		t.Fatalf("unexpected actor %+v", actor)
	}

	resolved, err := svc.Resolve(token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != actor.ID || resolved.Kind != domain.ActorLocal || resolved.Name != "Alice" {
		t.Fatalf("resolved actor %+v does not match registered %+v", resolved, actor)
	}

	// Email lookup is case-insensitive at login.
	if _, _, err := svc.Login(ctx, "ALICE@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for bad password, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil)

	cases := []struct {
		name, email, password, confirm string
	}{
		{"", "a@example.com", "secret1", "secret1"},
		{"Alice", "not-an-email", "secret1", "secret1"},
		{"Alice", "a@example.com", "short", "short"},
		{"Alice", "a@example.com", "secret1", "different"},
	}
	for i, c := range cases {
		if _, _, err := svc.Register(ctx, c.name, c.email, c.password, c.confirm); !domain.IsValidation(err) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	if _, _, err := svc.Register(ctx, "Alice", "a@example.com", "secret1", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "Other", "a@example.com", "secret2", "secret2"); !domain.IsValidation(err) {
		t.Fatalf("duplicate email must be rejected, got %v", err)
	}
}

func TestAdminLoginNeverTouchesUserStore(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil)

	actor, token, err := svc.Login(ctx, "Admin@Example.com", "admin-pass")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if !actor.IsAdmin() {
		t.Fatalf("expected admin actor, got %+v", actor)
	}

	resolved, err := svc.Resolve(token)
	if err != nil {
		t.Fatalf("resolve admin token: %v", err)
	}
	if !resolved.IsAdmin() {
		t.Fatalf("resolved actor lost admin flag: %+v", resolved)
	}

	if _, _, err := svc.Login(ctx, "admin@example.com", "wrong"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for wrong admin password, got %v", err)
	}
}

type staticProvider struct {
	ident auth.ProviderIdentity
	err   error
}

func (p *staticProvider) Verify(context.Context, string) (auth.ProviderIdentity, error) {
	return p.ident, p.err
}

func TestExchangeExternal(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&staticProvider{ident: auth.ProviderIdentity{
		UID:   "prov-42",
		Email: "Bob@Example.com",
		Name:  "Bob",
	}})

	actor, token, err := svc.ExchangeExternal(ctx, "opaque-provider-token")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if actor.Kind != domain.ActorExternal || actor.UID != "prov-42" || actor.Email != "bob@example.com" {
		t.Fatalf("unexpected actor %+v", actor)
	}

	resolved, err := svc.Resolve(token)
	if err != nil {
		t.Fatalf("resolve external token: %v", err)
	}
	if resolved.UID != "prov-42" || resolved.Kind != domain.ActorExternal {
		t.Fatalf("resolved actor %+v", resolved)
	}

	rejecting := newTestService(&staticProvider{err: errors.New("bad token")})
	if _, _, err := rejecting.ExchangeExternal(ctx, "junk"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated from rejecting provider, got %v", err)
	}

	noProvider := newTestService(nil)
	if _, _, err := noProvider.ExchangeExternal(ctx, "anything"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without provider, got %v", err)
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	svc := newTestService(nil)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Resolve(token); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("token %q: expected ErrUnauthenticated, got %v", token, err)
		}
	}

	// Token signed with a different secret.
	other := auth.NewService(memory.NewUserRepository(), nil, auth.Config{Secret: []byte("other-secret")}, nil)
	_, foreign, err := other.Register(context.Background(), "Eve", "eve@example.com", "secret1", "secret1")
	if err != nil {
		t.Fatalf("register on other service: %v", err)
	}
	if _, err := svc.Resolve(foreign); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("foreign-signed token must be rejected, got %v", err)
	}
}
