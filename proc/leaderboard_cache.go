package proc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/knott/sys"
	"github.com/redis/go-redis/v9"
)

const (
	keyLeaderboard  = "knott:leaderboard:"
	globalScopeKey  = "global"
	defaultCacheTTL = 30 * time.Second
)

// LeaderboardCache keeps recently rendered leaderboards in Redis. Each scope
// (a guild or the global board) is one hash whose fields are the requested
// limits, so invalidating a scope is a single DEL.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedBoard struct {
	CachedAt time.Time              `json:"cached_at"`
	Entries  []sys.LeaderboardEntry `json:"entries"`
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &LeaderboardCache{client: client, ttl: ttl}
}

// DialLeaderboardCache connects to the Redis server at url and checks it
// answers before returning.
func DialLeaderboardCache(ctx context.Context, url string, ttl time.Duration) (*LeaderboardCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewLeaderboardCache(client, ttl), nil
}

func scopeKey(guildID snowflake.ID) string {
	if guildID == 0 {
		return keyLeaderboard + globalScopeKey
	}
	return keyLeaderboard + guildID.String()
}

// Get returns the cached board for (guild, limit). A zero guild is the
// global board. Entries older than the TTL count as a miss.
func (c *LeaderboardCache) Get(ctx context.Context, guildID snowflake.ID, limit int) ([]sys.LeaderboardEntry, bool, error) {
	raw, err := c.client.HGet(ctx, scopeKey(guildID), strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var board cachedBoard
	if err := json.Unmarshal(raw, &board); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached leaderboard: %w", err)
	}
	if time.Since(board.CachedAt) >= c.ttl {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return board.Entries, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, guildID snowflake.ID, limit int, entries []sys.LeaderboardEntry) error {
	data, err := json.Marshal(cachedBoard{CachedAt: time.Now(), Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}

	key := scopeKey(guildID)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), data)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate drops the cached boards of the guild and the global board.
func (c *LeaderboardCache) Invalidate(ctx context.Context, guildID snowflake.ID) error {
	return c.client.Del(ctx, scopeKey(guildID), scopeKey(0)).Err()
}

func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}
