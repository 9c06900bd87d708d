// Package app contains the use cases behind the HTTP surface: question
// management, result recording and ranking, quiz session orchestration and
// the admin overview. Services read from the primary store first and fall
// back to the embedded in-memory set when the store is down.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"levelquiz-service/internal/domain"
)

// QuestionStore is implemented by both the Postgres and in-memory
// repositories.
type QuestionStore interface {
	ListByCategory(ctx context.Context, category string, level int) ([]domain.Question, error)
	ListOwnedBy(ctx context.Context, actor domain.Actor) ([]domain.Question, error)
	ListOwned(ctx context.Context) ([]domain.Question, error)
	Get(ctx context.Context, id string) (domain.Question, error)
	Create(ctx context.Context, q domain.Question) error
	Update(ctx context.Context, q domain.Question) error
	Delete(ctx context.Context, id string) error
	DeleteAllOwned(ctx context.Context) error
}

// QuestionService serves question reads for quiz play and owner-scoped CRUD
// for contributed questions. When a primary store is configured, writes go
// there and are mirrored into the fallback so play continues through store
// outages.
type QuestionService struct {
	store    QuestionStore // nil in pure in-memory mode
	fallback QuestionStore
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewQuestionService(store, fallback QuestionStore, logger *slog.Logger) *QuestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionService{
		store:    store,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// QuestionsFor returns the question pool for one category and level,
// preferring the primary store and falling back to the embedded set. An
// empty store batch falls back too, so play continues against an
// unpopulated database.
func (s *QuestionService) QuestionsFor(ctx context.Context, category string, level int) ([]domain.Question, error) {
	if s.store != nil {
		batch, err := s.store.ListByCategory(ctx, category, level)
		if err == nil && len(batch) > 0 {
			return batch, nil
		}
		if err != nil {
			s.logger.Warn("question store read failed, serving fallback set",
				slog.String("category", category),
				slog.Int("level", level),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.fallback.ListByCategory(ctx, category, level)
}

// ListMine returns the questions the actor contributed. Admin sees every
// contributed question; the embedded seed set is never listed here.
func (s *QuestionService) ListMine(ctx context.Context, actor domain.Actor) ([]domain.Question, error) {
	if s.store != nil {
		qs, err := s.store.ListOwnedBy(ctx, actor)
		if err == nil {
			return qs, nil
		}
		s.logger.Warn("question store read failed, serving fallback set", slog.String("error", err.Error()))
	}
	return s.fallback.ListOwnedBy(ctx, actor)
}

// Add validates and persists a new question stamped with the actor's
// ownership.
func (s *QuestionService) Add(ctx context.Context, actor domain.Actor, q domain.Question) (domain.Question, error) {
	if err := domain.ValidateQuestion(&q); err != nil {
		return domain.Question{}, err
	}
	q.ID = s.newID()
	q.Ownership = actor.Stamp()
	q.CreatedAt = s.now()

	if s.store != nil {
		if err := s.store.Create(ctx, q); err != nil {
			return domain.Question{}, fmt.Errorf("create question: %w", err)
		}
		// Mirror so fallback reads include the new question during outages.
		if err := s.fallback.Create(ctx, q); err != nil {
			s.logger.Warn("fallback mirror failed", slog.String("id", q.ID), slog.String("error", err.Error()))
		}
		return q, nil
	}
	if err := s.fallback.Create(ctx, q); err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Update replaces an owned question's content. Ownership and creation time
// are immutable.
func (s *QuestionService) Update(ctx context.Context, actor domain.Actor, q domain.Question) (domain.Question, error) {
	existing, err := s.load(ctx, q.ID)
	if err != nil {
		return domain.Question{}, err
	}
	if !actor.Owns(existing.Ownership) {
		return domain.Question{}, domain.ErrForbidden
	}
	if err := domain.ValidateQuestion(&q); err != nil {
		return domain.Question{}, err
	}
	q.Ownership = existing.Ownership
	q.CreatedAt = existing.CreatedAt

	if s.store != nil {
		if err := s.store.Update(ctx, q); err != nil {
			return domain.Question{}, fmt.Errorf("update question: %w", err)
		}
		if err := s.fallback.Update(ctx, q); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("fallback mirror failed", slog.String("id", q.ID), slog.String("error", err.Error()))
		}
		return q, nil
	}
	if err := s.fallback.Update(ctx, q); err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// Remove deletes an owned question.
func (s *QuestionService) Remove(ctx context.Context, actor domain.Actor, id string) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Owns(existing.Ownership) {
		return domain.ErrForbidden
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		if err := s.fallback.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("fallback mirror failed", slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil
	}
	return s.fallback.Delete(ctx, id)
}

func (s *QuestionService) load(ctx context.Context, id string) (domain.Question, error) {
	if s.store != nil {
		q, err := s.store.Get(ctx, id)
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return q, err
		}
		s.logger.Warn("question store read failed, serving fallback set", slog.String("id", id), slog.String("error", err.Error()))
	}
	return s.fallback.Get(ctx, id)
}
