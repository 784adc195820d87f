package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gte=0,lte=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
}

// TrackingConfig selects which stores a report feeds
type TrackingConfig struct {
	PastTrack        bool `yaml:"pastTrack"`
	RegisterMaxSpeed bool `yaml:"registerMaxSpeed"`
	// RetainUnrelatedFields keeps position data on static-only updates and
	// vice versa.
	RetainUnrelatedFields bool `yaml:"retainUnrelatedFields"`
}

// StoreConfig contains retention and persistence settings
type StoreConfig struct {
	Backend                 string        `yaml:"backend" validate:"oneof=memory cache bolt redis postgres"`
	Dir                     string        `yaml:"dir"`
	TargetExpire            time.Duration `yaml:"targetExpire" validate:"gt=0"`
	CleanupInterval         time.Duration `yaml:"cleanupInterval" validate:"gte=0"`
	PastTrackTTL            time.Duration `yaml:"pastTrackTTL" validate:"gt=0"`
	DefaultMinPastTrackDist float64       `yaml:"defaultMinPastTrackDist" validate:"gte=0"`
	MaxSpeedRingSize        int           `yaml:"maxSpeedRingSize" validate:"gte=2"`
	MaxSpeedStore           string        `yaml:"maxSpeedStore" validate:"oneof=ring simple"`
	CacheSize               int           `yaml:"cacheSize" validate:"gt=0"`
}

// RedisConfig is shared by the redis backend, the redis ingest source and
// the update stream
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Channel  string `yaml:"channel" validate:"required"`
}

// PostgresConfig contains the postgres backend connection
type PostgresConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

// SourceConfig describes a single report source
type SourceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type" validate:"required,oneof=redis ndjson gtfsrt"`
	// URL is an http(s) URL or, for ndjson, a file path.
	URL      string        `yaml:"url" validate:"required_unless=Type redis"`
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
	// Channel overrides redis.channel for a redis source.
	Channel string `yaml:"channel"`
}

// IngestConfig lists the report sources
type IngestConfig struct {
	Sources []SourceConfig `yaml:"sources" validate:"dive"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Tracking TrackingConfig `yaml:"tracking"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the configuration used for every key the file omits.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Tracking: TrackingConfig{
			PastTrack: true,
		},
		Store: StoreConfig{
			Backend:                 "bolt",
			Dir:                     "backup",
			TargetExpire:            48 * time.Hour,
			CleanupInterval:         10 * time.Minute,
			PastTrackTTL:            time.Hour,
			DefaultMinPastTrackDist: 100,
			MaxSpeedRingSize:        30,
			MaxSpeedStore:           "ring",
			CacheSize:               5000000,
		},
		Redis: RedisConfig{
			Channel: "ais:reports",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
