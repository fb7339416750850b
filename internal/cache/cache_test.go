package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sek-scheduler/internal/decode"
)

func sampleEntry() Entry {
	return Entry{
		ScenarioKey: "2026-term1",
		Status:      "optimal",
		Objective:   9.5,
		Entries: []decode.ScheduleEntry{
			{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1},
		},
	}
}

func TestSolutionCacheDisabledUsesInMemoryMap(t *testing.T) {
	c := New(nil, 0, nil, false)
	c.Set(context.Background(), "k1", sampleEntry())

	got, ok := c.Get(context.Background(), "k1")
	require.True(t, ok)
	assert.Equal(t, "2026-term1", got.ScenarioKey)
	assert.False(t, got.StoredAt.IsZero())
}

func TestSolutionCacheMissReturnsFalse(t *testing.T) {
	c := New(nil, 0, nil, false)
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestSolutionCacheDegradesToMemoryOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1", // nothing listens here; every call fails fast
		DialTimeout: 50 * time.Millisecond,
	})
	defer client.Close()

	c := New(client, time.Minute, nil, true)
	c.Set(context.Background(), "k2", sampleEntry())

	got, ok := c.Get(context.Background(), "k2")
	require.True(t, ok, "Set must keep an in-memory copy even when the redis write fails")
	assert.Equal(t, "optimal", got.Status)
}

func TestNewDefaultsZeroOrNegativeTTLTo24Hours(t *testing.T) {
	c := New(nil, -1, nil, false)
	assert.Equal(t, 24*time.Hour, c.ttl)
}

func TestNilLoggerIsReplacedWithNop(t *testing.T) {
	c := New(nil, 0, nil, false)
	assert.NotNil(t, c.logger)
}
