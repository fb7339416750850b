// Package cache is the solution cache (spec §4.6 "Incremental re-solve"):
// it stores the most recent solved schedule per scenario key so the next
// solve for that scenario can seed ResolveIncremental instead of starting
// cold. It is Redis-backed when enabled, degrading to an in-process map
// on any Redis error, the same enabled-with-graceful-degradation shape
// used elsewhere in this codebase for optional infrastructure.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sek-scheduler/internal/decode"
)

// Entry is one cached solve outcome, keyed by scenario.
type Entry struct {
	ScenarioKey string                 `json:"scenario_key"`
	Status      string                 `json:"status"`
	Objective   float64                `json:"objective"`
	Entries     []decode.ScheduleEntry `json:"entries"`
	StoredAt    time.Time              `json:"stored_at"`
}

// SolutionCache stores and retrieves solve outcomes by scenario key.
type SolutionCache struct {
	redis   *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool

	mu  sync.RWMutex
	mem map[string]Entry
}

// New constructs a SolutionCache. client may be nil, in which case the
// cache always falls back to its in-process map.
func New(client *redis.Client, ttl time.Duration, logger *zap.Logger, enabled bool) *SolutionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SolutionCache{redis: client, ttl: ttl, logger: logger, enabled: enabled, mem: map[string]Entry{}}
}

func (c *SolutionCache) redisEnabled() bool {
	return c != nil && c.enabled && c.redis != nil
}

// Get returns the cached entry for key, and whether it was found.
func (c *SolutionCache) Get(ctx context.Context, key string) (Entry, bool) {
	if c.redisEnabled() {
		raw, err := c.redis.Get(ctx, cacheKey(key)).Bytes()
		if err == nil {
			var e Entry
			if jsonErr := json.Unmarshal(raw, &e); jsonErr == nil {
				return e, true
			}
			c.logger.Warn("solution cache: corrupt entry, falling back to memory", zap.String("key", key))
		} else if err != redis.Nil {
			c.logger.Warn("solution cache: redis get failed, falling back to memory", zap.Error(err))
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.mem[key]
	return e, ok
}

// Set stores entry under key.
func (c *SolutionCache) Set(ctx context.Context, key string, entry Entry) {
	entry.StoredAt = time.Now().UTC()

	c.mu.Lock()
	c.mem[key] = entry
	c.mu.Unlock()

	if !c.redisEnabled() {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("solution cache: marshal failed", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, cacheKey(key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("solution cache: redis set failed, kept in memory only", zap.Error(err))
	}
}

func cacheKey(key string) string {
	return "sek-scheduler:solution:" + key
}
