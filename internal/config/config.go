// Package config loads process configuration from an optional YAML file, an
// optional .env file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	"transit-route-service/internal/transit"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Database   DatabaseConfig   `yaml:"database"`
	Routing    transit.Settings `yaml:"routing"`
	Precompute PrecomputeConfig `yaml:"precompute"`
	Cache      CacheConfig      `yaml:"cache"`
}

type ServerConfig struct {
	Port           string   `yaml:"port" validate:"required,numeric"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SnapshotConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite pgx"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type PrecomputeConfig struct {
	// Workers <= 0 means GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`
}

type CacheConfig struct {
	RouteTTLSeconds int `yaml:"route_ttl_seconds" validate:"gte=0"`
}

// RouteTTL is how long an encoded route answer stays cached.
func (c CacheConfig) RouteTTL() time.Duration {
	return time.Duration(c.RouteTTLSeconds) * time.Second
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:     ServerConfig{Port: "8080", AllowedOrigins: []string{"*"}},
		Snapshot:   SnapshotConfig{Path: "data/transport.db"},
		Database:   DatabaseConfig{Driver: "sqlite", DSN: "data/network.sqlite"},
		Routing:    transit.Settings{BusWaitTime: 6, BusVelocity: 40},
		Precompute: PrecomputeConfig{Workers: 0},
		Cache:      CacheConfig{RouteTTLSeconds: 300},
	}
}

var validate = validator.New()

// Load builds the configuration. path may be empty, in which case
// TRANSIT_CONFIG is consulted and, failing that, only defaults and the
// environment are used.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("TRANSIT_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Routing.Validate(); err != nil {
		return err
	}
	return validate.Struct(c)
}

func applyEnv(cfg *Config) error {
	cfg.Snapshot.Path = Get("SNAPSHOT_PATH", cfg.Snapshot.Path)
	cfg.Server.Port = Get("PORT", cfg.Server.Port)
	cfg.Database.Driver = Get("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = Get("DATABASE_URL", cfg.Database.DSN)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}

	if v := os.Getenv("PRECOMPUTE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRECOMPUTE_WORKERS=%q: %w", v, err)
		}
		cfg.Precompute.Workers = n
	}

	return nil
}

// Get returns the environment value for key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
