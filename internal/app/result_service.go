package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"levelquiz-service/internal/domain"
)

// ResultStore is implemented by both the Postgres and in-memory
// repositories.
type ResultStore interface {
	Insert(ctx context.Context, res domain.Result) error
	Get(ctx context.Context, id string) (domain.Result, error)
	GetMany(ctx context.Context, ids []string) ([]domain.Result, error)
	Top(ctx context.Context, category, search string, limit int) ([]domain.Result, error)
	ListByActor(ctx context.Context, actor domain.Actor) ([]domain.Result, error)
	ListAll(ctx context.Context) ([]domain.Result, error)
	Delete(ctx context.Context, id string) error
	DeleteByActor(ctx context.Context, actor domain.Actor, category string) error
	DeleteAll(ctx context.Context) error
}

// RankIndex is the write-through ranking index over results. Reads that
// cannot be served from the index fall through to the store.
type RankIndex interface {
	Add(ctx context.Context, res domain.Result) error
	Remove(ctx context.Context, category string, ids ...string) error
	TopIDs(ctx context.Context, category string, limit int) ([]string, error)
	Clear(ctx context.Context) error
}

// ResultService records attempts, serves the leaderboard and derives
// per-category level progress. Recorded scores come from the finished
// session as-is; results are append-only.
type ResultService struct {
	store    ResultStore // nil in pure in-memory mode
	fallback ResultStore
	index    RankIndex // nil when Redis is not configured
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewResultService(store, fallback ResultStore, index RankIndex, logger *slog.Logger) *ResultService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultService{
		store:       store,
		fallback:    fallback,
		index:       index,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Record persists one finished attempt under the actor's ownership.
func (s *ResultService) Record(ctx context.Context, actor domain.Actor, category string, level, score int) (domain.Result, error) {
	res := domain.Result{
		ID:        s.newID(),
		Ownership: actor.Stamp(),
		Username:  actor.DisplayName(),
		Quiz:      category,
		Level:     level,
		Score:     score,
		CreatedAt: s.now(),
	}
	if level < 1 {
		res.Level = 1
	}

	if s.store != nil {
		if err := s.store.Insert(ctx, res); err != nil {
			return domain.Result{}, fmt.Errorf("record result: %w", err)
		}
		if err := s.fallback.Insert(ctx, res); err != nil {
			s.logger.Warn("fallback mirror failed", slog.String("id", res.ID), slog.String("error", err.Error()))
		}
	} else if err := s.fallback.Insert(ctx, res); err != nil {
		return domain.Result{}, fmt.Errorf("record result: %w", err)
	}

	if s.index != nil {
		if err := s.index.Add(ctx, res); err != nil {
			s.logger.Warn("rank index write failed", slog.String("id", res.ID), slog.String("error", err.Error()))
		}
	}
	s.broadcast(ctx)
	return res, nil
}

// Leaderboard returns the top results, best first, optionally scoped to one
// category and filtered by a case-insensitive username substring. Substring
// searches always scan the store; the index only ranks.
func (s *ResultService) Leaderboard(ctx context.Context, category, search string, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = 10
	}
	var results []domain.Result
	if s.index != nil && search == "" {
		if fromIndex, err := s.topFromIndex(ctx, category, limit); err == nil {
			results = fromIndex
		} else {
			s.logger.Warn("rank index read failed, querying store", slog.String("error", err.Error()))
		}
	}
	if results == nil {
		var err error
		results, err = s.top(ctx, category, search, limit)
		if err != nil {
			return domain.Leaderboard{}, err
		}
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, res := range results {
		entries[i] = domain.LeaderboardEntry{
			Username: res.Username,
			Quiz:     res.Quiz,
			Level:    res.Level,
			Score:    res.Score,
			When:     res.CreatedAt,
		}
	}
	return domain.Leaderboard{Quiz: category, Entries: entries, UpdatedAt: s.now()}, nil
}

// ProgressFor computes the actor's max passed level per category from their
// recorded results. Categories are keyed lowercase. A store outage yields an
// empty map, which locks everything above level 1.
func (s *ResultService) ProgressFor(ctx context.Context, actor domain.Actor) (map[string]int, error) {
	results, err := s.listByActor(ctx, actor)
	if err != nil {
		s.logger.Warn("progress read failed", slog.String("error", err.Error()))
		return map[string]int{}, nil
	}
	progress := make(map[string]int)
	for _, res := range results {
		if res.Score < domain.PassingScore {
			continue
		}
		key := strings.ToLower(res.Quiz)
		if res.Level > progress[key] {
			progress[key] = res.Level
		}
	}
	return progress, nil
}

// ListMine returns the actor's own results, best first.
func (s *ResultService) ListMine(ctx context.Context, actor domain.Actor) ([]domain.Result, error) {
	return s.listByActor(ctx, actor)
}

// Delete removes one owned result.
func (s *ResultService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	res, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Owns(res.Ownership) {
		return domain.ErrForbidden
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete result: %w", err)
		}
		_ = s.fallback.Delete(ctx, id)
	} else if err := s.fallback.Delete(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, res.Quiz, id); err != nil {
			s.logger.Warn("rank index remove failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	s.broadcast(ctx)
	return nil
}

// DeleteMine removes all of the actor's results, optionally scoped to one
// category. Only the purged IDs leave the ranking index; everyone else's
// ranks stay index-served.
func (s *ResultService) DeleteMine(ctx context.Context, actor domain.Actor, category string) error {
	purged, listErr := s.listByActor(ctx, actor)

	if s.store != nil {
		if err := s.store.DeleteByActor(ctx, actor, category); err != nil {
			return fmt.Errorf("delete results: %w", err)
		}
		_ = s.fallback.DeleteByActor(ctx, actor, category)
	} else if err := s.fallback.DeleteByActor(ctx, actor, category); err != nil {
		return err
	}

	if s.index != nil {
		if listErr != nil {
			// Could not enumerate what was deleted; drop the whole index
			// and let reads fall through to the store.
			s.clearIndex(ctx)
		} else {
			s.removeFromIndex(ctx, purged, category)
		}
	}
	s.broadcast(ctx)
	return nil
}

// Subscribe returns a channel receiving a fresh global leaderboard snapshot
// after every mutation. The caller must invoke the returned cancel function
// to avoid leaks.
func (s *ResultService) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *ResultService) broadcast(ctx context.Context) {
	s.mu.Lock()
	n := len(s.subscribers)
	s.mu.Unlock()
	if n == 0 {
		return
	}
	lb, err := s.Leaderboard(ctx, "", "", 10)
	if err != nil {
		s.logger.Warn("leaderboard broadcast skipped", slog.String("error", err.Error()))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- lb:
		default: // slow subscriber, drop rather than stall the writer
		}
	}
}

// topFromIndex resolves ranked IDs to rows. Missing rows (deleted out from
// under the index) are dropped; a fully empty resolution falls back to the
// store so an empty index never masks real results.
func (s *ResultService) topFromIndex(ctx context.Context, category string, limit int) ([]domain.Result, error) {
	ids, err := s.index.TopIDs(ctx, category, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("rank index empty")
	}
	results, err := s.getMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("rank index resolved no rows")
	}
	return results, nil
}

// removeFromIndex drops the purged IDs from their category sets, grouped so
// each category is one pipeline round trip.
func (s *ResultService) removeFromIndex(ctx context.Context, purged []domain.Result, category string) {
	byQuiz := make(map[string][]string)
	for _, res := range purged {
		if category != "" && !strings.EqualFold(res.Quiz, category) {
			continue
		}
		byQuiz[res.Quiz] = append(byQuiz[res.Quiz], res.ID)
	}
	for quiz, ids := range byQuiz {
		if err := s.index.Remove(ctx, quiz, ids...); err != nil {
			s.logger.Warn("rank index remove failed", slog.String("quiz", quiz), slog.String("error", err.Error()))
		}
	}
}

func (s *ResultService) clearIndex(ctx context.Context) {
	if s.index == nil {
		return
	}
	if err := s.index.Clear(ctx); err != nil {
		s.logger.Warn("rank index clear failed", slog.String("error", err.Error()))
	}
}

func (s *ResultService) top(ctx context.Context, category, search string, limit int) ([]domain.Result, error) {
	if s.store != nil {
		results, err := s.store.Top(ctx, category, search, limit)
		if err == nil {
			return results, nil
		}
		s.logger.Warn("result store read failed, serving fallback set", slog.String("error", err.Error()))
	}
	return s.fallback.Top(ctx, category, search, limit)
}

func (s *ResultService) get(ctx context.Context, id string) (domain.Result, error) {
	if s.store != nil {
		res, err := s.store.Get(ctx, id)
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return res, err
		}
		s.logger.Warn("result store read failed, serving fallback set", slog.String("id", id), slog.String("error", err.Error()))
	}
	return s.fallback.Get(ctx, id)
}

func (s *ResultService) getMany(ctx context.Context, ids []string) ([]domain.Result, error) {
	if s.store != nil {
		results, err := s.store.GetMany(ctx, ids)
		if err == nil {
			return results, nil
		}
		s.logger.Warn("result store read failed, serving fallback set", slog.String("error", err.Error()))
	}
	return s.fallback.GetMany(ctx, ids)
}

func (s *ResultService) listByActor(ctx context.Context, actor domain.Actor) ([]domain.Result, error) {
	if s.store != nil {
		results, err := s.store.ListByActor(ctx, actor)
		if err == nil {
			return results, nil
		}
		return nil, err
	}
	return s.fallback.ListByActor(ctx, actor)
}
