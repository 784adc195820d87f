package aistrack

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/theoremus-urban-solutions/aistrack/config"
	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/kvstore"
	"github.com/theoremus-urban-solutions/aistrack/store"
)

// Store names double as bolt file names, redis hash suffixes and postgres
// table suffixes.
const (
	targetsStore    = "targets"
	pastTracksStore = "pasttracks"
	maxSpeedStore   = "maxspeed"
)

type stores struct {
	targets store.TargetStore
	tracks  store.PastTrackStore
	speeds  store.MaxSpeedStore
}

func (s stores) close() {
	for _, c := range []interface{ Close() error }{s.targets, s.tracks, s.speeds} {
		if c != nil {
			_ = c.Close()
		}
	}
}

func storeOptions(cfg *config.AppConfig) store.Options {
	return store.Options{
		TargetExpire:            cfg.Store.TargetExpire,
		CleanupInterval:         cfg.Store.CleanupInterval,
		PastTrackTTL:            cfg.Store.PastTrackTTL,
		DefaultMinPastTrackDist: cfg.Store.DefaultMinPastTrackDist,
		MaxSpeedRingSize:        cfg.Store.MaxSpeedRingSize,
		CacheSize:               cfg.Store.CacheSize,
		StopTimeout:             cfg.Server.ShutdownTimeout,
	}
}

// opener returns the kvstore opener for a named store, or nil for the
// in-process backends.
func opener(cfg *config.AppConfig, name string, rdb *redis.Client, pool *pgxpool.Pool) kvstore.Opener {
	switch cfg.Store.Backend {
	case "bolt":
		return kvstore.BoltOpener{Dir: cfg.Store.Dir, Name: name}
	case "redis":
		return kvstore.RedisOpener{Client: rdb, Name: name}
	case "postgres":
		return kvstore.PostgresOpener{DB: pool, Name: name}
	}
	return nil
}

// openStores opens the three stores for the configured backend. A backend
// that cannot be opened even after one reset is returned as an error; the
// caller must not start without it.
func openStores(ctx context.Context, cfg *config.AppConfig, env *internal.Env, rdb *redis.Client, pool *pgxpool.Pool) (stores, error) {
	opts := storeOptions(cfg)
	var s stores

	open := func(name string) (kvstore.Backend, error) {
		b, err := kvstore.Open(ctx, opener(cfg, name, rdb, pool), env.Logger)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", name, err)
		}
		return b, nil
	}

	durable := opener(cfg, targetsStore, rdb, pool) != nil
	switch {
	case cfg.Store.Backend == "cache":
		s.targets = store.NewCacheTargetStore(env, opts)
	case durable:
		b, err := open(targetsStore)
		if err != nil {
			return stores{}, err
		}
		s.targets = store.NewDurableTargetStore(env, opts, b)
	default:
		s.targets = store.NewMemoryTargetStore(env, opts)
	}

	if durable {
		b, err := open(pastTracksStore)
		if err != nil {
			s.close()
			return stores{}, err
		}
		s.tracks = store.NewDurablePastTrackStore(env, opts, b)
	} else {
		s.tracks = store.NewMemoryPastTrackStore(env, opts)
	}

	switch {
	case cfg.Store.MaxSpeedStore == "simple":
		s.speeds = store.NewSimpleMaxSpeedStore()
	case durable:
		b, err := open(maxSpeedStore)
		if err != nil {
			s.close()
			return stores{}, err
		}
		s.speeds = store.NewDurableMaxSpeedStore(env, opts, b)
	default:
		s.speeds = store.NewMemoryMaxSpeedStore(env, opts)
	}
	return s, nil
}
