package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"levelquiz-service/internal/domain"
)

const (
	globalKey     = "leaderboard:all"
	categoryKeyPf = "leaderboard:cat:"
)

// LeaderboardIndex maintains sorted-set ranking indexes over recorded results.
// Each result ID is a member of the global set and of its category set, scored
// so that higher quiz scores rank first and ties break toward newer results:
//
//	ZADD leaderboard:all           {packed} {resultID}
//	ZADD leaderboard:cat:{quiz}    {packed} {resultID}
type LeaderboardIndex struct {
	client *redis.Client
}

func NewLeaderboardIndex(client *redis.Client) *LeaderboardIndex {
	return &LeaderboardIndex{client: client}
}

// Add indexes a freshly recorded result.
func (i *LeaderboardIndex) Add(ctx context.Context, res domain.Result) error {
	member := redis.Z{Score: packScore(res.Score, res.CreatedAt), Member: res.ID}
	pipe := i.client.Pipeline()
	pipe.ZAdd(ctx, globalKey, member)
	pipe.ZAdd(ctx, categoryKey(res.Quiz), member)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove drops result IDs from the global set and from one category set.
func (i *LeaderboardIndex) Remove(ctx context.Context, category string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for n, id := range ids {
		members[n] = id
	}
	pipe := i.client.Pipeline()
	pipe.ZRem(ctx, globalKey, members...)
	if category != "" {
		pipe.ZRem(ctx, categoryKey(category), members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// TopIDs returns up to limit result IDs ranked best-first. An empty category
// reads the global set.
func (i *LeaderboardIndex) TopIDs(ctx context.Context, category string, limit int) ([]string, error) {
	key := globalKey
	if category != "" {
		key = categoryKey(category)
	}
	return i.client.ZRevRange(ctx, key, 0, int64(limit)-1).Result()
}

// Clear drops every leaderboard set. Used after bulk purges; subsequent reads
// fall through to the backing store until results are indexed again.
func (i *LeaderboardIndex) Clear(ctx context.Context) error {
	keys, err := i.client.Keys(ctx, categoryKeyPf+"*").Result()
	if err != nil {
		return err
	}
	keys = append(keys, globalKey)
	return i.client.Del(ctx, keys...).Err()
}

func categoryKey(category string) string {
	return categoryKeyPf + strings.ToLower(category)
}

// packScore folds recency into the sort score so equal quiz scores rank the
// more recent result first. Scores stay well within float64 integer precision.
func packScore(score int, at time.Time) float64 {
	return float64(score)*1e10 + float64(at.Unix())
}
