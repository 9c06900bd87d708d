package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"levelquiz-service/internal/domain"
)

// ResultRepository is an in-memory attempt store for dev mode and tests.
type ResultRepository struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{results: make(map[string]domain.Result)}
}

func (r *ResultRepository) Insert(_ context.Context, res domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	r.results[res.ID] = res
	return nil
}

func (r *ResultRepository) Get(_ context.Context, id string) (domain.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.results[id]
	if !ok {
		return domain.Result{}, domain.ErrNotFound
	}
	return res, nil
}

func (r *ResultRepository) GetMany(_ context.Context, ids []string) ([]domain.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Result
	for _, id := range ids {
		if res, ok := r.results[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

// Top returns the ranking: score descending, recency descending, capped at
// limit. The category match is case-insensitive; search is a
// case-insensitive substring match on the display username.
func (r *ResultRepository) Top(_ context.Context, category, search string, limit int) ([]domain.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Result
	needle := strings.ToLower(search)
	for _, res := range r.results {
		if category != "" && !strings.EqualFold(res.Quiz, category) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(res.Username), needle) {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ResultRepository) ListByActor(_ context.Context, actor domain.Actor) ([]domain.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Result
	for _, res := range r.results {
		if !actor.Owns(res.Ownership) {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ResultRepository) ListAll(_ context.Context) ([]domain.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Result, 0, len(r.results))
	for _, res := range r.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ResultRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.results[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.results, id)
	return nil
}

// DeleteByActor purges an actor's attempts, optionally scoped to one
// category.
func (r *ResultRepository) DeleteByActor(_ context.Context, actor domain.Actor, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, res := range r.results {
		if !actor.Owns(res.Ownership) {
			continue
		}
		if category != "" && !strings.EqualFold(res.Quiz, category) {
			continue
		}
		delete(r.results, id)
	}
	return nil
}

func (r *ResultRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = make(map[string]domain.Result)
	return nil
}
