package memory

import (
	"context"
	"errors"
	"testing"

	"levelquiz-service/internal/domain"
)

func TestUserRepositoryEmailLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	user := domain.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.FindByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("wrong user %+v", got)
	}

	if err := repo.Create(ctx, domain.User{ID: "u2", Email: "Alice@Example.com"}); err == nil {
		t.Fatalf("duplicate email must be rejected")
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
