// Package memory holds the in-process repository implementations: the
// embedded fallback question set that serves reads when the persistent
// store is unreachable, and full stores for store-less dev mode.
package memory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"levelquiz-service/internal/domain"
)

//go:embed seed_questions.json
var seedQuestionsJSON []byte

// SeedQuestions decodes the embedded question set. Seed questions carry no
// owner and are never editable through the user-facing flows.
func SeedQuestions() ([]domain.Question, error) {
	var raw []struct {
		Quiz     string   `json:"quiz"`
		Question string   `json:"question"`
		Options  []string `json:"options"`
		Answer   string   `json:"answer"`
		Level    int      `json:"level"`
	}
	if err := json.Unmarshal(seedQuestionsJSON, &raw); err != nil {
		return nil, fmt.Errorf("decode seed questions: %w", err)
	}
	out := make([]domain.Question, len(raw))
	for i, r := range raw {
		out[i] = domain.Question{
			ID:       fmt.Sprintf("seed-%03d", i+1),
			Quiz:     r.Quiz,
			Question: r.Question,
			Options:  r.Options,
			Answer:   r.Answer,
			Level:    r.Level,
		}
	}
	return out, nil
}

// QuestionRepository is an in-memory question store. It doubles as the
// fallback data set behind the persistent store and as the primary store
// in dev mode.
type QuestionRepository struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	order     []string
}

func NewQuestionRepository(seed []domain.Question) *QuestionRepository {
	r := &QuestionRepository{questions: make(map[string]domain.Question)}
	for _, q := range seed {
		r.questions[q.ID] = q
		r.order = append(r.order, q.ID)
	}
	return r
}

func (r *QuestionRepository) ListByCategory(_ context.Context, category string, level int) ([]domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Question
	for _, id := range r.order {
		q := r.questions[id]
		if strings.EqualFold(q.Quiz, category) && q.Level == level {
			out = append(out, cloneQuestion(q))
		}
	}
	return out, nil
}

func (r *QuestionRepository) ListOwnedBy(_ context.Context, actor domain.Actor) ([]domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Question
	for _, id := range r.order {
		q := r.questions[id]
		if q.Ownership.IsZero() {
			continue
		}
		if actor.Owns(q.Ownership) {
			out = append(out, cloneQuestion(q))
		}
	}
	return out, nil
}

func (r *QuestionRepository) ListOwned(_ context.Context) ([]domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Question
	for _, id := range r.order {
		q := r.questions[id]
		if !q.Ownership.IsZero() {
			out = append(out, cloneQuestion(q))
		}
	}
	return out, nil
}

func (r *QuestionRepository) Get(_ context.Context, id string) (domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrNotFound
	}
	return cloneQuestion(q), nil
}

func (r *QuestionRepository) Create(_ context.Context, q domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if _, exists := r.questions[q.ID]; !exists {
		r.order = append(r.order, q.ID)
	}
	r.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (r *QuestionRepository) Update(_ context.Context, q domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.questions[q.ID]; !ok {
		return domain.ErrNotFound
	}
	r.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (r *QuestionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.questions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.questions, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteAllOwned removes every owned question, leaving the seed set intact.
func (r *QuestionRepository) DeleteAllOwned(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.order[:0]
	for _, id := range r.order {
		if r.questions[id].Ownership.IsZero() {
			kept = append(kept, id)
		} else {
			delete(r.questions, id)
		}
	}
	r.order = kept
	return nil
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
