package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/theoremus-urban-solutions/aistrack/config"
	"github.com/theoremus-urban-solutions/aistrack/gtfsrt"
	"github.com/theoremus-urban-solutions/aistrack/model"
)

// Sink receives decoded reports. It must not block.
type Sink func(model.Report)

// Source delivers reports to a sink until ctx is done or the input is
// exhausted.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// New builds the source described by cfg. rdb is required for redis sources.
func New(cfg config.SourceConfig, rdb *redis.Client, defaultChannel string, logger *slog.Logger) (Source, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Type + "-" + uuid.NewString()[:8]
	}
	logger = logger.With("source", name)
	switch cfg.Type {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("source %s: redis client not configured", name)
		}
		channel := cfg.Channel
		if channel == "" {
			channel = defaultChannel
		}
		return NewRedisSource(name, rdb, channel, logger), nil
	case "ndjson":
		return NewNDJSONSource(name, cfg.URL, cfg.Timeout, logger), nil
	case "gtfsrt":
		return NewGTFSRTSource(name, gtfsrt.NewClient(cfg.Timeout), cfg.URL, cfg.Interval, logger), nil
	}
	return nil, fmt.Errorf("source %s: unknown type %q", name, cfg.Type)
}

// DecodeReport parses one JSON report. A missing timestamp is set to now.
func DecodeReport(b []byte, now time.Time) (model.Report, error) {
	var r model.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return model.Report{}, fmt.Errorf("decode report: %w", err)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	return r, nil
}
