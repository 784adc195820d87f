package aistrack

import (
	"log/slog"
	"os"

	"github.com/theoremus-urban-solutions/aistrack/config"
	"github.com/theoremus-urban-solutions/aistrack/internal"
)

// InitLogging builds the process logger from cfg and installs it as the
// slog default.
func InitLogging(cfg config.LogConfig) (*slog.Logger, error) {
	logger, err := internal.NewLogger(os.Stdout, cfg.Level, cfg.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
