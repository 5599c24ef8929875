// Package app opens the backing stores and wires the services shared by the
// API server and the pipeline.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/config"
	"github.com/diamondline/props-api/internal/logic"
	"github.com/diamondline/props-api/internal/publisher"
)

// App holds open connections and the services built on them.
type App struct {
	Postgres   *pgxpool.Pool
	ClickHouse driver.Conn
	Redis      *redis.Client
	Publisher  *publisher.KafkaPublisher

	Events      logic.EventSource
	Reference   logic.ReferenceStore
	Cache       logic.FeatureCache
	Deriver     *logic.FeatureDeriver
	Resolver    *logic.MatchupResolver
	Engine      *logic.PredictionEngine
	Predictions *logic.PredictionLog
	Identity    *logic.IdentityResolver
	Batch       *logic.BatchPredictor

	logger *zap.SugaredLogger
}

// New connects to Postgres, ClickHouse and Redis, loads the model registry
// and builds every service. Kafka publishing is enabled only when brokers are
// configured.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	sugar := log.Sugar()
	a := &App{logger: sugar}

	var err error
	if a.Postgres, err = pgxpool.New(ctx, cfg.PostgresURL); err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	chOpts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("parse clickhouse url: %w", err)
	}
	if a.ClickHouse, err = clickhouse.Open(chOpts); err != nil {
		a.Close()
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	a.Redis = redis.NewClient(redisOpts)

	registry, err := logic.LoadModelRegistry(cfg.ModelDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load models: %w", err)
	}
	if len(registry.PropTypes()) == 0 {
		sugar.Warnw("No model artifacts found; predictions will fail until models are deployed", "dir", cfg.ModelDir)
	}

	engineCfg := logic.EngineConfig{Registry: registry, Logger: sugar}
	if len(cfg.KafkaBrokers) > 0 {
		if a.Publisher, err = publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.PredictionTopic, sugar); err != nil {
			a.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		engineCfg.Publisher = a.Publisher
	}

	features := logic.NewFeatureStore(a.Postgres)
	a.Events = logic.NewEventStore(a.ClickHouse)
	a.Reference = logic.NewReferenceStore(a.Postgres)
	a.Cache = logic.NewFeatureCache(a.Redis, cfg.FeatureCacheTTL, sugar)
	a.Predictions = logic.NewPredictionLog(a.Postgres)
	engineCfg.Log = a.Predictions

	a.Deriver = logic.NewFeatureDeriver(logic.DeriverConfig{
		Events: a.Events,
		Store:  features,
		Cache:  a.Cache,
		Window: cfg.RollingWindow,
		Logger: sugar,
	})
	a.Resolver = logic.NewMatchupResolver(logic.ResolverConfig{
		Features:        features,
		Schedule:        a.Reference,
		Events:          a.Events,
		Cache:           a.Cache,
		StaleAfter:      cfg.StaleAfter,
		StrictStaleness: cfg.StrictStaleness,
		Logger:          sugar,
	})
	a.Engine = logic.NewPredictionEngine(engineCfg)
	a.Identity = logic.NewIdentityResolver(a.Reference, sugar)
	a.Batch = logic.NewBatchPredictor(logic.BatchConfig{
		Props:       a.Reference,
		Identity:    a.Identity,
		Resolver:    a.Resolver,
		Predictor:   a.Engine,
		Concurrency: cfg.PredictConcurrency,
		Logger:      sugar,
	})

	return a, nil
}

// Ping checks every backing store once.
func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.Postgres.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := a.ClickHouse.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse: %w", err)
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close releases every open connection. It is safe on a partially built App.
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.logger.Warnw("Failed to close kafka publisher", "error", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.ClickHouse != nil {
		_ = a.ClickHouse.Close()
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}
