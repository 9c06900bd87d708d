package domain_test

import (
	"errors"
	"testing"

	"levelquiz-service/internal/domain"
)

func TestOwnsMatchesByKind(t *testing.T) {
	local := domain.Actor{Kind: domain.ActorLocal, ID: "u1", Name: "Alice"}
	external := domain.Actor{Kind: domain.ActorExternal, UID: "prov-9", Email: "bob@example.com", Name: "Bob"}
	admin := domain.Actor{Kind: domain.ActorAdmin, Email: "admin@example.com"}

	cases := []struct {
		name  string
		actor domain.Actor
		owner domain.Ownership
		want  bool
	}{
		{"local matches own id", local, domain.Ownership{OwnerID: "u1"}, true},
		{"local rejects other id", local, domain.Ownership{OwnerID: "u2"}, false},
		{"external matches uid", external, domain.Ownership{OwnerUID: "prov-9"}, true},
		{"external matches email when uid differs", external, domain.Ownership{OwnerUID: "other", OwnerEmail: "bob@example.com"}, true},
		{"external rejects unrelated record", external, domain.Ownership{OwnerUID: "other", OwnerEmail: "carol@example.com"}, false},
		{"legacy record matches exact name", local, domain.Ownership{OwnerName: "Alice"}, true},
		{"legacy record rejects other name", local, domain.Ownership{OwnerName: "alice"}, false},
		{"admin matches everything", admin, domain.Ownership{OwnerID: "u1"}, true},
		{"admin matches unowned", admin, domain.Ownership{}, true},
		{"nobody else matches unowned", local, domain.Ownership{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.actor.Owns(tc.owner); got != tc.want {
				t.Fatalf("Owns(%+v) = %v, want %v", tc.owner, got, tc.want)
			}
		})
	}
}

func TestStampRoundTripsThroughOwns(t *testing.T) {
	actors := []domain.Actor{
		{Kind: domain.ActorLocal, ID: "u1", Name: "Alice"},
		{Kind: domain.ActorExternal, UID: "prov-9", Email: "bob@example.com", Name: "Bob"},
		{Kind: domain.ActorAdmin, Email: "admin@example.com", Name: "Admin"},
	}
	for _, actor := range actors {
		if !actor.Owns(actor.Stamp()) {
			t.Fatalf("actor %s does not own its own stamp %+v", actor.Kind, actor.Stamp())
		}
	}
}

func TestValidateQuestion(t *testing.T) {
	valid := domain.Question{
		Quiz:     "Nature",
		Question: "Largest ocean?",
		Options:  []string{"Atlantic", "Pacific"},
		Answer:   "Pacific",
		Level:    1,
	}
	if err := domain.ValidateQuestion(&valid); err != nil {
		t.Fatalf("valid question rejected: %v", err)
	}

	zeroLevel := valid
	zeroLevel.Level = 0
	if err := domain.ValidateQuestion(&zeroLevel); err != nil {
		t.Fatalf("zero level should default, got %v", err)
	}
	if zeroLevel.Level != 1 {
		t.Fatalf("expected level defaulted to 1, got %d", zeroLevel.Level)
	}

	bad := []domain.Question{
		{Quiz: "", Question: "q", Options: []string{"a", "b"}, Answer: "a"},
		{Quiz: "Nature", Question: "", Options: []string{"a", "b"}, Answer: "a"},
		{Quiz: "Nature", Question: "q", Options: []string{"a"}, Answer: "a"},
		{Quiz: "Nature", Question: "q", Options: []string{"a", "b"}, Answer: "c"},
	}
	for i, q := range bad {
		err := domain.ValidateQuestion(&q)
		if err == nil {
			t.Fatalf("case %d: invalid question accepted", i)
		}
		if !domain.IsValidation(err) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d: expected *ValidationError, got %T", i, err)
		}
	}
}
