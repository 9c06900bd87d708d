// Package postgres implements the persistent repositories over a pgx pool,
// with a cooldown gate so an unreachable store fails fast instead of being
// hammered on every request.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"levelquiz-service/internal/domain"
)

// Gate tracks store availability. After a failure every caller fails fast
// for the cooldown window; the first request after the window probes again.
type Gate struct {
	mu        sync.Mutex
	cooldown  time.Duration
	downUntil time.Time
	now       func() time.Time
}

func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = 15 * time.Second
	}
	return &Gate{cooldown: cooldown, now: time.Now}
}

// Ready reports whether a store call should be attempted.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().After(g.downUntil) || g.downUntil.IsZero()
}

// MarkFailure opens the cooldown window.
func (g *Gate) MarkFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.downUntil = g.now().Add(g.cooldown)
}

// MarkSuccess closes the window early.
func (g *Gate) MarkSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.downUntil = time.Time{}
}

// Store bundles the shared pool, gate and per-query timeout for the
// repositories.
type Store struct {
	pool    *pgxpool.Pool
	gate    *Gate
	timeout time.Duration
}

func NewStore(pool *pgxpool.Pool, gate *Gate, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if gate == nil {
		gate = NewGate(0)
	}
	return &Store{pool: pool, gate: gate, timeout: timeout}
}

// Questions returns the question repository bound to this store.
func (s *Store) Questions() *QuestionRepository { return &QuestionRepository{store: s} }

// Results returns the result repository bound to this store.
func (s *Store) Results() *ResultRepository { return &ResultRepository{store: s} }

// Users returns the user repository bound to this store.
func (s *Store) Users() *UserRepository { return &UserRepository{store: s} }

// guard fails fast while the cooldown window is open.
func (s *Store) guard() error {
	if !s.gate.Ready() {
		return fmt.Errorf("%w: reconnect cooldown active", domain.ErrStoreUnavailable)
	}
	return nil
}

// wrap classifies a query error: no-rows becomes ErrNotFound; anything else
// trips the gate and surfaces as ErrStoreUnavailable.
func (s *Store) wrap(op string, err error) error {
	if err == nil {
		s.gate.MarkSuccess()
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	s.gate.MarkFailure()
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
