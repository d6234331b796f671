package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces environment overrides, e.g. CTE_SERVER_PORT=9000.
const envPrefix = "CTE_"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Model    ModelConfig    `koanf:"model"`
	Training TrainingConfig `koanf:"training"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string        `koanf:"url"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// ModelConfig locates the serving artifacts and caps request sizes.
type ModelConfig struct {
	RiskBundlePath     string `koanf:"risk_bundle_path"`
	BehaviorBundlePath string `koanf:"behavior_bundle_path"`
	MaxBatchSize       int    `koanf:"max_batch_size"`
}

// TrainingConfig tunes the offline selection protocol.
type TrainingConfig struct {
	MinSamples   int     `koanf:"min_samples"`
	TestFraction float64 `koanf:"test_fraction"`
	Folds        int     `koanf:"folds"`
	Seed         int64   `koanf:"seed"`
	Version      string  `koanf:"version"`
}

func defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
		Model: ModelConfig{
			RiskBundlePath:     "models/clinic_risk.json",
			BehaviorBundlePath: "models/behavior.json",
			MaxBatchSize:       100,
		},
		Training: TrainingConfig{
			MinSamples:   50,
			TestFraction: 0.2,
			Folds:        5,
			Seed:         42,
			Version:      "2.0",
		},
	}
}

// Load layers configuration: struct defaults, then an optional YAML file,
// then CTE_-prefixed environment variables.
func Load() (*Config, error) {
	return LoadFrom("configs/config.yaml")
}

// LoadFrom loads with an explicit config file path. The file is optional;
// a missing file falls through to defaults and environment.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		// Optional file; environment alone is a valid deployment.
		_ = k.Load(file.Provider(path), yaml.Parser())
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, envPrefix)), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Model.MaxBatchSize <= 0 {
		return fmt.Errorf("model.max_batch_size must be positive")
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("training.test_fraction must be in (0, 1)")
	}
	if c.Training.Folds < 2 {
		return fmt.Errorf("training.folds must be at least 2")
	}
	return nil
}
