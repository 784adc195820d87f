package aistrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/aistrack/config"
	"github.com/theoremus-urban-solutions/aistrack/ingest"
	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/stream"
	"github.com/theoremus-urban-solutions/aistrack/tracking"
)

// Service is the running tracker with its sources and HTTP server.
type Service struct {
	cfg    *config.AppConfig
	env    *internal.Env
	logger *slog.Logger

	Tracker *tracking.Tracker
	Hub     *stream.Hub
	App     *fiber.App

	redis   *redis.Client
	pool    *pgxpool.Pool
	sources []ingest.Source
}

// NewService opens the stores and builds every component. It fails when a
// store cannot be opened or a source is misconfigured.
func NewService(ctx context.Context, cfg *config.AppConfig, env *internal.Env) (*Service, error) {
	s := &Service{cfg: cfg, env: env, logger: env.Logger}

	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Store.Backend == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			s.closeClients()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pool = pool
	}

	st, err := openStores(ctx, cfg, env, s.redis, s.pool)
	if err != nil {
		s.closeClients()
		return nil, err
	}

	for _, sc := range cfg.Ingest.Sources {
		src, err := ingest.New(sc, s.redis, cfg.Redis.Channel, env.Logger)
		if err != nil {
			st.close()
			s.closeClients()
			return nil, err
		}
		s.sources = append(s.sources, src)
	}

	s.Tracker = tracking.New(env, tracking.Options{
		PastTrack:             cfg.Tracking.PastTrack,
		RegisterMaxSpeed:      cfg.Tracking.RegisterMaxSpeed,
		RetainUnrelatedFields: cfg.Tracking.RetainUnrelatedFields,
	}, st.targets, st.tracks, st.speeds)
	s.Hub = stream.NewHub(s.redis, cfg.Redis.Channel, env.Logger)
	s.Tracker.OnUpdate(s.Hub.Publish)
	s.App = NewServer(s.Tracker, s.Hub, env)
	return s, nil
}

// Run serves HTTP and runs every source until ctx is done, then shuts
// everything down. A source that fails is logged and does not stop the
// service.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range s.sources {
		g.Go(func() error {
			s.logger.Info("source started", "source", src.Name())
			if err := src.Run(gctx, s.Tracker.Ingest); err != nil {
				s.logger.Error("source failed", "source", src.Name(), "err", err)
				return nil
			}
			s.logger.Info("source finished", "source", src.Name())
			return nil
		})
	}

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", addr)
		if err := s.App.Listen(addr); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := s.App.ShutdownWithTimeout(s.cfg.Server.ShutdownTimeout); err != nil {
			s.logger.Warn("server shutdown", "err", err)
		}
		return nil
	})

	err := g.Wait()
	stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, s.Close(stopCtx))
}

// Close stops the tracker, which closes the stores, then the update stream,
// and releases the clients.
func (s *Service) Close(ctx context.Context) error {
	s.logger.Info("shutting down")
	err := s.Tracker.Stop(ctx)
	s.Hub.Close()
	s.closeClients()
	return err
}

func (s *Service) closeClients() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
