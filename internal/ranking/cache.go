package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// FreshnessThreshold is the post age below which a cached score is never
// reused: a brand-new post's signals move too fast for a stale number.
// Posts at or past the threshold reuse their cached score when one exists.
const FreshnessThreshold = time.Hour

// DefaultCacheTTL bounds how long a cached score can live in Redis before
// it silently expires and forces a recompute.
const DefaultCacheTTL = 6 * time.Hour

// CachedScore is one cached relevance score with its computation time.
// Scores are keyed by post id in a cache owned by the ranker; they are
// never written back onto the post entity.
type CachedScore struct {
	Score      float64   `cbor:"score"`
	ComputedAt time.Time `cbor:"computed_at"`
}

// ScoreCache stores batch-model relevance scores between ranking calls.
// Implementations must tolerate concurrent use. The cache is advisory:
// a lookup miss or storage failure only costs a recompute.
type ScoreCache interface {
	// Get returns the cached score for a post, and whether one exists.
	Get(ctx context.Context, postID string) (CachedScore, bool)

	// Put stores the score for a post.
	Put(ctx context.Context, postID string, entry CachedScore)
}

// MemoryScoreCache is an in-process ScoreCache. Thread-safe via RWMutex.
type MemoryScoreCache struct {
	mu      sync.RWMutex
	entries map[string]CachedScore
}

// NewMemoryScoreCache creates an empty in-memory score cache.
func NewMemoryScoreCache() *MemoryScoreCache {
	return &MemoryScoreCache{entries: make(map[string]CachedScore)}
}

// Get returns the cached score for a post, and whether one exists.
func (c *MemoryScoreCache) Get(_ context.Context, postID string) (CachedScore, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[postID]
	return entry, ok
}

// Put stores the score for a post.
func (c *MemoryScoreCache) Put(_ context.Context, postID string, entry CachedScore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[postID] = entry
}

// Len returns the number of cached entries.
func (c *MemoryScoreCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisScoreCache is a Redis-backed ScoreCache shared across ranking
// nodes. Entries are CBOR-encoded for compactness and expire after TTL.
// All failures degrade to cache misses with a warning log.
type RedisScoreCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisScoreCache wraps a Redis client. A zero ttl uses DefaultCacheTTL;
// a nil logger uses the default slog logger.
func NewRedisScoreCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisScoreCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisScoreCache{client: client, ttl: ttl, logger: logger}
}

// cacheKey builds the Redis key for a post's cached score.
func cacheKey(postID string) string {
	return fmt.Sprintf("rank:score:%s", postID)
}

// Get returns the cached score for a post, and whether one exists.
func (c *RedisScoreCache) Get(ctx context.Context, postID string) (CachedScore, bool) {
	data, err := c.client.Get(ctx, cacheKey(postID)).Bytes()
	if err == redis.Nil {
		return CachedScore{}, false
	}
	if err != nil {
		c.logger.Warn("score cache read failed", "post_id", postID, "error", err)
		return CachedScore{}, false
	}

	var entry CachedScore
	if err := cbor.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("score cache entry is malformed, discarding", "post_id", postID, "error", err)
		return CachedScore{}, false
	}
	return entry, true
}

// Put stores the score for a post with the configured TTL.
func (c *RedisScoreCache) Put(ctx context.Context, postID string, entry CachedScore) {
	data, err := cbor.Marshal(entry)
	if err != nil {
		c.logger.Warn("score cache encode failed", "post_id", postID, "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(postID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("score cache write failed", "post_id", postID, "error", err)
	}
}
