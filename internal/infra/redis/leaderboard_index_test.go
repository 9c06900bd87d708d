package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"levelquiz-service/internal/domain"
)

func newTestIndex(t *testing.T) (*LeaderboardIndex, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLeaderboardIndex(client), mr
}

func result(id, quiz string, score int, at time.Time) domain.Result {
	return domain.Result{ID: id, Quiz: quiz, Score: score, CreatedAt: at}
}

func TestTopIDsRanksByScoreThenRecency(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t)

	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	fixtures := []domain.Result{
		result("r-low", "Nature", 7, base),
		result("r-old", "Nature", 9, base),
		result("r-new", "Nature", 9, base.Add(time.Hour)),
		result("r-other", "Politics", 10, base),
	}
	for _, res := range fixtures {
		if err := idx.Add(ctx, res); err != nil {
			t.Fatalf("add %s: %v", res.ID, err)
		}
	}

	ids, err := idx.TopIDs(ctx, "nature", 10)
	if err != nil {
		t.Fatalf("top ids: %v", err)
	}
	want := []string{"r-new", "r-old", "r-low"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("rank %d: expected %s, got %s (full: %v)", i, want[i], ids[i], ids)
		}
	}

	global, err := idx.TopIDs(ctx, "", 2)
	if err != nil {
		t.Fatalf("global top: %v", err)
	}
	if len(global) != 2 || global[0] != "r-other" {
		t.Fatalf("global ranking wrong: %v", global)
	}
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	idx, mr := newTestIndex(t)

	base := time.Now()
	if err := idx.Add(ctx, result("r1", "Nature", 9, base)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := idx.Add(ctx, result("r2", "Politics", 8, base)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := idx.Remove(ctx, "Nature", "r1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, err := idx.TopIDs(ctx, "Nature", 10)
	if err != nil {
		t.Fatalf("top ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty nature set, got %v", ids)
	}

	if err := idx.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("leaderboard:all") || mr.Exists("leaderboard:cat:politics") {
		t.Fatalf("clear left keys behind")
	}
}
