// Package config loads service configuration. Values are layered from
// built-in defaults, an optional YAML file named by PROPS_CONFIG, and
// PROPS_-prefixed environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "PROPS_"
	envFileVar = "PROPS_CONFIG"
)

type Config struct {
	// Server
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// CORS
	AllowedOrigins []string `koanf:"allowed_origins"`

	// Database URLs
	PostgresURL   string `koanf:"postgres_url"`
	ClickHouseURL string `koanf:"clickhouse_url"`
	RedisURL      string `koanf:"redis_url"`

	// Prediction stream; publishing is disabled when no brokers are set.
	KafkaBrokers    []string `koanf:"kafka_brokers"`
	PredictionTopic string   `koanf:"prediction_topic"`

	// Worker pool
	WorkerCount   int           `koanf:"worker_count"`
	QueueSize     int           `koanf:"queue_size"`
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`

	// Features and models
	ModelDir           string        `koanf:"model_dir"`
	RollingWindow      int           `koanf:"rolling_window"`
	StaleAfter         time.Duration `koanf:"stale_after"`
	StrictStaleness    bool          `koanf:"strict_staleness"`
	FeatureCacheTTL    time.Duration `koanf:"feature_cache_ttl"`
	PredictConcurrency int           `koanf:"predict_concurrency"`

	// Pipeline
	Schedule string `koanf:"schedule"`
	Timezone string `koanf:"timezone"`
	RunOnce  bool   `koanf:"run_once"`
}

// Defaults returns a Config holding every default value. Database URLs have
// no default.
func Defaults() *Config {
	return &Config{
		Port:               8080,
		Env:                "development",
		AllowedOrigins:     []string{"http://localhost:3000"},
		PredictionTopic:    "props.predictions",
		WorkerCount:        8,
		QueueSize:          10000,
		BatchSize:          500,
		FlushInterval:      time.Second,
		ModelDir:           "models",
		RollingWindow:      5,
		StaleAfter:         72 * time.Hour,
		FeatureCacheTTL:    time.Hour,
		PredictConcurrency: 8,
		Schedule:           "0 6 * * *",
		Timezone:           "America/New_York",
	}
}

// Load builds the Config. It returns an error if the file cannot be read or
// critical configuration is missing.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// PROPS_QUEUE_SIZE -> queue_size
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings no process can start without.
func (c *Config) Validate() error {
	required := []struct {
		key, value string
	}{
		{"postgres_url", c.PostgresURL},
		{"clickhouse_url", c.ClickHouseURL},
		{"redis_url", c.RedisURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("missing required configuration: %s (%s%s)", r.key, envPrefix, strings.ToUpper(r.key))
		}
	}
	if c.RollingWindow < 1 {
		return fmt.Errorf("rolling_window must be at least 1, got %d", c.RollingWindow)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// splitList flattens comma-separated entries coming from env vars.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
