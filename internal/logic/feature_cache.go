package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/models"
)

const (
	featureGenerationKey = "features:generation"
	featureDerivedAtKey  = "features:derived_at"
)

// FeatureCache memoizes resolved feature vectors between derivation runs.
type FeatureCache interface {
	Get(ctx context.Context, playerID int64, prop models.PropType, asOf time.Time) (*models.FeatureVector, bool)
	Put(ctx context.Context, fv *models.FeatureVector)
	// Invalidate drops every cached vector by moving to a new generation.
	Invalidate(ctx context.Context, derivedAt time.Time) error
}

type redisFeatureCache struct {
	client RedisClient
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewFeatureCache(client RedisClient, ttl time.Duration, logger *zap.SugaredLogger) FeatureCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &redisFeatureCache{client: client, ttl: ttl, logger: logger}
}

func (c *redisFeatureCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, featureGenerationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (c *redisFeatureCache) key(ctx context.Context, playerID int64, prop models.PropType, asOf time.Time) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("features:v%s:%d:%s:%s", gen, playerID, prop, asOf.Format("2006-01-02")), nil
}

func (c *redisFeatureCache) Get(ctx context.Context, playerID int64, prop models.PropType, asOf time.Time) (*models.FeatureVector, bool) {
	key, err := c.key(ctx, playerID, prop, asOf)
	if err != nil {
		c.logger.Warnw("Feature cache generation lookup failed", "error", err)
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("Feature cache read failed", "error", err, "key", key)
		}
		return nil, false
	}
	var fv models.FeatureVector
	if err := json.Unmarshal(raw, &fv); err != nil {
		c.logger.Warnw("Discarding corrupt feature cache entry", "error", err, "key", key)
		return nil, false
	}
	return &fv, true
}

func (c *redisFeatureCache) Put(ctx context.Context, fv *models.FeatureVector) {
	key, err := c.key(ctx, fv.PlayerID, fv.PropType, fv.AsOf)
	if err != nil {
		c.logger.Warnw("Feature cache generation lookup failed", "error", err)
		return
	}
	raw, err := json.Marshal(fv)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warnw("Feature cache write failed", "error", err, "key", key)
	}
}

func (c *redisFeatureCache) Invalidate(ctx context.Context, derivedAt time.Time) error {
	if err := c.client.Incr(ctx, featureGenerationKey).Err(); err != nil {
		return fmt.Errorf("bump feature generation: %w", err)
	}
	if err := c.client.Set(ctx, featureDerivedAtKey, derivedAt.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("record derivation time: %w", err)
	}
	return nil
}
