package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"levelquiz-service/internal/domain"
)

// ActorActivity groups one identity's contributed questions and recorded
// results. The Ref key is the most specific owner field on the records.
type ActorActivity struct {
	Ref        string            `json:"ref"`
	Name       string            `json:"name,omitempty"`
	LastActive time.Time         `json:"lastActive,omitempty"`
	Questions  []domain.Question `json:"questions"`
	Results    []domain.Result   `json:"results"`
}

// Overview is the admin inspection view: all user-generated data bucketed
// per identity. The embedded seed questions are excluded.
type Overview struct {
	Actors         []ActorActivity `json:"actors"`
	TotalQuestions int             `json:"totalQuestions"`
	TotalResults   int             `json:"totalResults"`
}

// UserDirectory is the slice of the account store the purge touches.
// External actors have no rows, so a miss is not an error.
type UserDirectory interface {
	Delete(ctx context.Context, id string) error
}

// AdminService implements the admin-only inspection and purge operations.
// It reaches through the question and result services so purges keep the
// fallback mirrors and the ranking index consistent.
type AdminService struct {
	questions *QuestionService
	results   *ResultService
	users     UserDirectory // nil when accounts live elsewhere
	logger    *slog.Logger
}

func NewAdminService(questions *QuestionService, results *ResultService, users UserDirectory, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{questions: questions, results: results, users: users, logger: logger}
}

// Overview buckets every contributed question and recorded result by the
// identity that owns it.
func (s *AdminService) Overview(ctx context.Context) (Overview, error) {
	questions, err := s.listQuestions(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list questions: %w", err)
	}
	results, err := s.listResults(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list results: %w", err)
	}

	buckets := make(map[string]*ActorActivity)
	bucket := func(o domain.Ownership) *ActorActivity {
		ref := o.Ref()
		b, ok := buckets[ref]
		if !ok {
			b = &ActorActivity{Ref: ref, Name: o.OwnerName}
			buckets[ref] = b
		}
		if b.Name == "" {
			b.Name = o.OwnerName
		}
		return b
	}
	for _, q := range questions {
		b := bucket(q.Ownership)
		b.Questions = append(b.Questions, q)
		if q.CreatedAt.After(b.LastActive) {
			b.LastActive = q.CreatedAt
		}
	}
	for _, res := range results {
		b := bucket(res.Ownership)
		b.Results = append(b.Results, res)
		if res.CreatedAt.After(b.LastActive) {
			b.LastActive = res.CreatedAt
		}
	}

	overview := Overview{
		Actors:         make([]ActorActivity, 0, len(buckets)),
		TotalQuestions: len(questions),
		TotalResults:   len(results),
	}
	for _, b := range buckets {
		overview.Actors = append(overview.Actors, *b)
	}
	sort.Slice(overview.Actors, func(i, j int) bool {
		return overview.Actors[i].Ref < overview.Actors[j].Ref
	})
	return overview, nil
}

// PurgeActor deletes every question and result owned by the identity behind
// ref, along with the local account row when ref is a user id. Purged result
// IDs leave the ranking index; other actors' ranks are untouched.
func (s *AdminService) PurgeActor(ctx context.Context, ref string) error {
	questions, err := s.listQuestions(ctx)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	for _, q := range questions {
		if q.Ref() != ref {
			continue
		}
		if err := s.deleteQuestion(ctx, q.ID); err != nil {
			return err
		}
	}

	results, err := s.listResults(ctx)
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}
	var purged []domain.Result
	for _, res := range results {
		if res.Ref() != ref {
			continue
		}
		if err := s.deleteResult(ctx, res.ID); err != nil {
			return err
		}
		purged = append(purged, res)
	}

	// A local actor's ref is its user id; drop the account row too. For
	// external and legacy name refs there is no row to drop.
	if s.users != nil {
		if err := s.users.Delete(ctx, ref); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete user: %w", err)
		}
	}

	if s.results.index != nil {
		s.results.removeFromIndex(ctx, purged, "")
	}
	s.results.broadcast(ctx)
	s.logger.Info("purged actor data", slog.String("ref", ref))
	return nil
}

// PurgeAll wipes every contributed question and every result. The embedded
// seed questions survive.
func (s *AdminService) PurgeAll(ctx context.Context) error {
	if s.questions.store != nil {
		if err := s.questions.store.DeleteAllOwned(ctx); err != nil {
			return fmt.Errorf("purge questions: %w", err)
		}
	}
	if err := s.questions.fallback.DeleteAllOwned(ctx); err != nil {
		return fmt.Errorf("purge questions: %w", err)
	}

	if s.results.store != nil {
		if err := s.results.store.DeleteAll(ctx); err != nil {
			return fmt.Errorf("purge results: %w", err)
		}
	}
	if err := s.results.fallback.DeleteAll(ctx); err != nil {
		return fmt.Errorf("purge results: %w", err)
	}

	s.results.clearIndex(ctx)
	s.results.broadcast(ctx)
	s.logger.Info("purged all user data")
	return nil
}

func (s *AdminService) listQuestions(ctx context.Context) ([]domain.Question, error) {
	if s.questions.store != nil {
		qs, err := s.questions.store.ListOwned(ctx)
		if err == nil {
			return qs, nil
		}
		s.logger.Warn("question store read failed, serving fallback set", slog.String("error", err.Error()))
	}
	return s.questions.fallback.ListOwned(ctx)
}

func (s *AdminService) listResults(ctx context.Context) ([]domain.Result, error) {
	if s.results.store != nil {
		results, err := s.results.store.ListAll(ctx)
		if err == nil {
			return results, nil
		}
		s.logger.Warn("result store read failed, serving fallback set", slog.String("error", err.Error()))
	}
	return s.results.fallback.ListAll(ctx)
}

func (s *AdminService) deleteQuestion(ctx context.Context, id string) error {
	if s.questions.store != nil {
		if err := s.questions.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		_ = s.questions.fallback.Delete(ctx, id)
		return nil
	}
	return s.questions.fallback.Delete(ctx, id)
}

func (s *AdminService) deleteResult(ctx context.Context, id string) error {
	if s.results.store != nil {
		if err := s.results.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete result: %w", err)
		}
		_ = s.results.fallback.Delete(ctx, id)
		return nil
	}
	return s.results.fallback.Delete(ctx, id)
}
