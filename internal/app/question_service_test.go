package app_test

import (
	"context"
	"errors"
	"testing"

	"levelquiz-service/internal/app"
	"levelquiz-service/internal/domain"
	"levelquiz-service/internal/infra/memory"
)

var (
	alice = domain.Actor{Kind: domain.ActorLocal, ID: "u-alice", Name: "Alice"}
	bob   = domain.Actor{Kind: domain.ActorLocal, ID: "u-bob", Name: "Bob"}
	admin = domain.Actor{Kind: domain.ActorAdmin, Email: "admin@example.com"}
)

// downQuestionStore fails every call the way the gated Postgres store does
// during an outage.
type downQuestionStore struct{}

func (downQuestionStore) ListByCategory(context.Context, string, int) ([]domain.Question, error) {
	return nil, domain.ErrStoreUnavailable
}
func (downQuestionStore) ListOwnedBy(context.Context, domain.Actor) ([]domain.Question, error) {
	return nil, domain.ErrStoreUnavailable
}
func (downQuestionStore) ListOwned(context.Context) ([]domain.Question, error) {
	return nil, domain.ErrStoreUnavailable
}
func (downQuestionStore) Get(context.Context, string) (domain.Question, error) {
	return domain.Question{}, domain.ErrStoreUnavailable
}
func (downQuestionStore) Create(context.Context, domain.Question) error {
	return domain.ErrStoreUnavailable
}
func (downQuestionStore) Update(context.Context, domain.Question) error {
	return domain.ErrStoreUnavailable
}
func (downQuestionStore) Delete(context.Context, string) error {
	return domain.ErrStoreUnavailable
}
func (downQuestionStore) DeleteAllOwned(context.Context) error {
	return domain.ErrStoreUnavailable
}

func seededQuestionService(t *testing.T) (*app.QuestionService, *memory.QuestionRepository) {
	t.Helper()
	seed, err := memory.SeedQuestions()
	if err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	fallback := memory.NewQuestionRepository(seed)
	return app.NewQuestionService(nil, fallback, nil), fallback
}

func TestQuestionsForServesSeedSet(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededQuestionService(t)

	batch, err := svc.QuestionsFor(ctx, "mathematics", 1)
	if err != nil {
		t.Fatalf("questions for: %v", err)
	}
	if len(batch) != 10 {
		t.Fatalf("expected 10 seed questions for mathematics level 1, got %d", len(batch))
	}
	for _, q := range batch {
		if q.Level != 1 {
			t.Fatalf("level filter leaked a level-%d question", q.Level)
		}
	}
}

func TestCreateThenListByCategoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededQuestionService(t)

	created, err := svc.Add(ctx, alice, domain.Question{
		Quiz:     "Astronomy",
		Question: "Closest star to Earth?",
		Options:  []string{"Sirius", "The Sun"},
		Answer:   "The Sun",
		Level:    1,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.ID == "" || created.OwnerID != alice.ID {
		t.Fatalf("created question missing id or ownership: %+v", created)
	}

	batch, err := svc.QuestionsFor(ctx, "astronomy", 1)
	if err != nil {
		t.Fatalf("questions for: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("expected exactly the created question, got %d", len(batch))
	}
	got := batch[0]
	if got.Question != created.Question || got.Answer != created.Answer || len(got.Options) != 2 {
		t.Fatalf("round trip lost fields: %+v", got)
	}
}

func TestUpdateAndDeleteEnforceOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededQuestionService(t)

	created, err := svc.Add(ctx, alice, domain.Question{
		Quiz:     "Nature",
		Question: "Largest ocean?",
		Options:  []string{"Atlantic", "Pacific"},
		Answer:   "Pacific",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	update := created
	update.Question = "Which ocean is the largest?"
	if _, err := svc.Update(ctx, bob, update); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner update, got %v", err)
	}
	if err := svc.Remove(ctx, bob, created.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner delete, got %v", err)
	}

	// Record unchanged after rejected mutations.
	mine, err := svc.ListMine(ctx, alice)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 || mine[0].Question != created.Question {
		t.Fatalf("rejected update must leave the record unchanged: %+v", mine)
	}

	if _, err := svc.Update(ctx, admin, update); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if err := svc.Remove(ctx, alice, created.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.Update(ctx, alice, update); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// emptyQuestionStore answers reads successfully with zero rows, like a
// reachable but unpopulated database.
type emptyQuestionStore struct{ downQuestionStore }

func (emptyQuestionStore) ListByCategory(context.Context, string, int) ([]domain.Question, error) {
	return nil, nil
}

func TestEmptyStoreBatchFallsBackToSeedSet(t *testing.T) {
	ctx := context.Background()
	seed, err := memory.SeedQuestions()
	if err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	svc := app.NewQuestionService(emptyQuestionStore{}, memory.NewQuestionRepository(seed), nil)

	batch, err := svc.QuestionsFor(ctx, "Mathematics", 1)
	if err != nil {
		t.Fatalf("questions for: %v", err)
	}
	if len(batch) != 10 {
		t.Fatalf("expected fallback seed batch of 10 on empty store result, got %d", len(batch))
	}
}

func TestStoreOutageDegradesToFallback(t *testing.T) {
	ctx := context.Background()
	seed, err := memory.SeedQuestions()
	if err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	svc := app.NewQuestionService(downQuestionStore{}, memory.NewQuestionRepository(seed), nil)

	batch, err := svc.QuestionsFor(ctx, "Politics", 1)
	if err != nil {
		t.Fatalf("read must degrade silently: %v", err)
	}
	if len(batch) != 10 {
		t.Fatalf("expected fallback seed batch, got %d", len(batch))
	}

	// Writes surface the outage.
	_, err = svc.Add(ctx, alice, domain.Question{
		Quiz:     "Politics",
		Question: "q",
		Options:  []string{"a", "b"},
		Answer:   "a",
	})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on write, got %v", err)
	}
}
