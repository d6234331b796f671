package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/config"
)

// assessmentKeyPrefix namespaces assessment entries in the shared Redis.
const assessmentKeyPrefix = "cte:assessment:"

// DefaultAssessmentTTL keeps entries short-lived: a re-registration after
// a profile edit must be rescored, not served stale.
const DefaultAssessmentTTL = 5 * time.Minute

// AssessmentCacheMetrics tracks cache effectiveness.
type AssessmentCacheMetrics struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// cachedAssessment wraps the stored verdict with cache metadata.
type cachedAssessment struct {
	Assessment *assessment.RiskAssessment `json:"assessment"`
	CachedAt   time.Time                  `json:"cached_at"`
}

// AssessmentCache is a short-TTL Redis cache for completed risk
// assessments, keyed by normalized clinic identity. All failures degrade
// to a miss; the scoring path never depends on Redis availability.
type AssessmentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewAssessmentCache connects to Redis using the service configuration.
func NewAssessmentCache(cfg *config.RedisConfig, logger *zap.Logger) (*AssessmentCache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultAssessmentTTL
	}
	return &AssessmentCache{client: client, ttl: ttl, logger: logger}, nil
}

// NewAssessmentCacheWithClient wraps an existing client, used by tests.
func NewAssessmentCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *AssessmentCache {
	if ttl <= 0 {
		ttl = DefaultAssessmentTTL
	}
	return &AssessmentCache{client: client, ttl: ttl, logger: logger}
}

func (c *AssessmentCache) Get(ctx context.Context, key string) (*assessment.RiskAssessment, bool) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("assessment cache read failed", zap.Error(err))
		return nil, false
	}

	var entry cachedAssessment
	if err := json.Unmarshal(data, &entry); err != nil || entry.Assessment == nil {
		c.errors.Add(1)
		c.logger.Warn("assessment cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	c.hits.Add(1)
	return entry.Assessment, true
}

func (c *AssessmentCache) Set(ctx context.Context, key string, a *assessment.RiskAssessment) error {
	entry := cachedAssessment{
		Assessment: a,
		CachedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.errors.Add(1)
		return fmt.Errorf("marshaling assessment: %w", err)
	}

	if err := c.client.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("writing assessment cache: %w", err)
	}
	return nil
}

// Invalidate drops one clinic's cached assessment, e.g. after a manual
// review overrides the automated verdict.
func (c *AssessmentCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.redisKey(key)).Err()
}

func (c *AssessmentCache) Metrics() AssessmentCacheMetrics {
	return AssessmentCacheMetrics{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}

func (c *AssessmentCache) Close() error {
	return c.client.Close()
}

// redisKey hashes the identity key so arbitrary clinic names never leak
// into key patterns.
func (c *AssessmentCache) redisKey(key string) string {
	sum := md5.Sum([]byte(key))
	return assessmentKeyPrefix + hex.EncodeToString(sum[:])
}
