// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/averyls/mingle/internal/models"
)

// DefaultTTL bounds recommendation staleness; mutations also invalidate
// affected users eagerly, so the TTL only covers second-hop drift.
const DefaultTTL = 60 * time.Second

// ConnectRedis initializes a Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Recommendations caches computed recommendation lists per user. Redis
// failures are logged and treated as misses; the cache never fails a request.
type Recommendations struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRecommendations(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *Recommendations {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Recommendations{rdb: rdb, ttl: ttl, logger: logger}
}

func recKey(user uuid.UUID) string {
	return "rec:" + user.String()
}

func (c *Recommendations) Get(ctx context.Context, user uuid.UUID) ([]models.Recommendation, bool) {
	data, err := c.rdb.Get(ctx, recKey(user)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("recommendation cache read failed")
		}
		return nil, false
	}

	var recs []models.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		c.logger.WithError(err).Warn("discarding undecodable recommendation cache entry")
		c.rdb.Del(ctx, recKey(user))
		return nil, false
	}
	return recs, true
}

func (c *Recommendations) Set(ctx context.Context, user uuid.UUID, recs []models.Recommendation) {
	data, err := json.Marshal(recs)
	if err != nil {
		c.logger.WithError(err).Warn("failed to marshal recommendations for cache")
		return
	}
	if err := c.rdb.Set(ctx, recKey(user), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("recommendation cache write failed")
	}
}

// Invalidate drops cached recommendations for users whose neighborhood
// changed (both sides of an accepted or removed edge).
func (c *Recommendations) Invalidate(ctx context.Context, users ...uuid.UUID) {
	keys := make([]string, len(users))
	for i, u := range users {
		keys[i] = recKey(u)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).Debug("recommendation cache invalidation failed")
	}
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
