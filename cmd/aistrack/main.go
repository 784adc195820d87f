// Package main runs the AIS vessel tracking service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/theoremus-urban-solutions/aistrack"
	"github.com/theoremus-urban-solutions/aistrack/config"
	"github.com/theoremus-urban-solutions/aistrack/internal"
)

type flags struct {
	configPath string
	port       int
	storeDir   string
	logLevel   string
}

func main() {
	var f flags
	setupCommandLineFlags(&f)
	pflag.Parse()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, &f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := aistrack.InitLogging(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := aistrack.NewService(ctx, cfg, internal.NewEnv(logger))
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	if err := svc.Run(ctx); err != nil {
		logger.Error("service stopped with error", "err", err)
		return
	}
	logger.Info("service stopped")
}

func setupCommandLineFlags(f *flags) {
	pflag.StringVarP(&f.configPath, "config", "c", "", "path to config.yml")
	pflag.IntVarP(&f.port, "port", "p", 0, "HTTP port (overrides config)")
	pflag.StringVar(&f.storeDir, "store-dir", "", "bolt store directory (overrides config)")
	pflag.StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error (overrides config)")
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cfg *config.AppConfig, f *flags) error {
	if pflag.CommandLine.Changed("port") {
		cfg.Server.Port = f.port
	}
	if f.storeDir != "" {
		cfg.Store.Dir = f.storeDir
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg.Validate()
}
