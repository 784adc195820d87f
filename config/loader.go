package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// defaultPaths are tried in order when no path is given.
var defaultPaths = []string{"config.yml", "./config/config.yml"}

// envKeys maps configuration keys to their environment overrides.
var envKeys = map[string]string{
	"server.port":  "AISTRACK_SERVER_PORT",
	"store.dir":    "AISTRACK_STORE_DIR",
	"redis.addr":   "AISTRACK_REDIS_ADDR",
	"postgres.url": "AISTRACK_POSTGRES_URL",
	"log.level":    "AISTRACK_LOG_LEVEL",
}

// Load reads the configuration at path over Default, applies environment
// overrides and validates the result. An empty path tries config.yml in the
// working directory and falls back to the defaults when none exists.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfig(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return data, nil
	}
	for _, p := range defaultPaths {
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
	}
	return nil, nil
}

func applyEnv(cfg *AppConfig) error {
	v := viper.New()
	v.SetEnvPrefix("AISTRACK")
	v.AutomaticEnv()
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("store.dir") {
		cfg.Store.Dir = v.GetString("store.dir")
	}
	if v.IsSet("redis.addr") {
		cfg.Redis.Addr = v.GetString("redis.addr")
	}
	if v.IsSet("postgres.url") {
		cfg.Postgres.URL = v.GetString("postgres.url")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	return nil
}

// Validate checks field constraints and the settings each backend and
// source depends on.
func (c *AppConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Store.Backend {
	case "bolt":
		if c.Store.Dir == "" {
			return fmt.Errorf("%w: store.dir is required for the bolt backend", ErrInvalid)
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis backend", ErrInvalid)
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("%w: postgres.url is required for the postgres backend", ErrInvalid)
		}
	}
	for i, s := range c.Ingest.Sources {
		if s.Type == "redis" && c.Redis.Addr == "" {
			return fmt.Errorf("%w: ingest.sources[%d]: redis.addr is required", ErrInvalid, i)
		}
		if s.Type == "gtfsrt" && s.Interval <= 0 {
			return fmt.Errorf("%w: ingest.sources[%d]: interval is required for gtfsrt", ErrInvalid, i)
		}
	}
	return nil
}
