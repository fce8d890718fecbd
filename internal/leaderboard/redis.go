package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"versequiz/internal/domain"
)

// RedisStore keeps per-difficulty win counts in sorted sets, with side hashes
// for display names and first-win timestamps. The timestamp hash carries the
// tie-break: equal win counts rank by who got on the board first.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(r redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{redis: r, prefix: prefix}
}

func (s *RedisStore) AppendWin(ctx context.Context, playerID, displayName string, d domain.Difficulty) error {
	now, err := s.redis.Time(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis time: %w", err)
	}

	_, err = s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZIncrBy(ctx, s.winsKey(d), 1, playerID)
		p.HSet(ctx, s.namesKey(d), playerID, displayName)
		p.HSetNX(ctx, s.firstKey(d), playerID, now.UnixMilli())
		return nil
	})
	if err != nil {
		return fmt.Errorf("append win: %w", err)
	}
	return nil
}

func (s *RedisStore) Fetch(ctx context.Context) (domain.Leaderboard, error) {
	lb := make(domain.Leaderboard)

	for _, d := range domain.Difficulties() {
		entries, err := s.fetchDifficulty(ctx, d)
		if err != nil {
			return nil, err
		}
		lb[d] = entries
	}

	return lb, nil
}

func (s *RedisStore) fetchDifficulty(ctx context.Context, d domain.Difficulty) ([]domain.LeaderboardEntry, error) {
	zs, err := s.redis.ZRevRangeWithScores(ctx, s.winsKey(d), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch wins %s: %w", d, err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	names, err := s.redis.HGetAll(ctx, s.namesKey(d)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch names %s: %w", d, err)
	}
	firsts, err := s.redis.HGetAll(ctx, s.firstKey(d)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch first wins %s: %w", d, err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(zs))
	firstAt := make(map[string]int64, len(zs))
	for _, z := range zs {
		playerID := z.Member.(string)
		ms, _ := strconv.ParseInt(firsts[playerID], 10, 64)
		firstAt[playerID] = ms
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:    playerID,
			DisplayName: names[playerID],
			Wins:        int64(z.Score),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return firstAt[entries[i].PlayerID] < firstAt[entries[j].PlayerID]
	})

	return entries, nil
}

func (s *RedisStore) winsKey(d domain.Difficulty) string {
	return fmt.Sprintf("%s:%s:wins", s.prefix, d)
}

func (s *RedisStore) namesKey(d domain.Difficulty) string {
	return fmt.Sprintf("%s:%s:names", s.prefix, d)
}

func (s *RedisStore) firstKey(d domain.Difficulty) string {
	return fmt.Sprintf("%s:%s:first", s.prefix, d)
}
