package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/kvstore"
	"github.com/theoremus-urban-solutions/aistrack/model"
)

// DurableTargetStore keeps snapshots in a kvstore.Backend so they survive a
// restart. Snapshots are immutable, so a decoded value is handed out as is.
type DurableTargetStore struct {
	env     *internal.Env
	opts    Options
	backend kvstore.Backend
	logger  *slog.Logger
	sweep   *sweeper
	closed  sync.Once

	// mu orders Put against the sweep's check-then-delete of a key.
	mu sync.Mutex
}

func NewDurableTargetStore(env *internal.Env, opts Options, backend kvstore.Backend) *DurableTargetStore {
	s := &DurableTargetStore{
		env:     env,
		opts:    opts,
		backend: backend,
		logger:  env.Logger.With("store", "targets"),
	}
	if n, err := backend.Len(context.Background()); err == nil {
		s.logger.Info("targets loaded", "count", n)
	}
	s.sweep = startSweeper("targets", opts.CleanupInterval, opts.StopTimeout, env.Logger, func(ctx context.Context) { s.Sweep(ctx) })
	return s
}

func (s *DurableTargetStore) Get(ctx context.Context, mmsi int) (*model.VesselTarget, bool) {
	b, err := s.backend.Get(ctx, key(mmsi))
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.logger.Error("get target", "mmsi", mmsi, "err", err)
		}
		return nil, false
	}
	t, err := decodeTarget(b)
	if err != nil {
		s.logger.Error("get target", "mmsi", mmsi, "err", err)
		return nil, false
	}
	return t, true
}

func (s *DurableTargetStore) Put(ctx context.Context, t *model.VesselTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Put(ctx, key(t.MMSI), encodeTarget(t)); err != nil {
		return fmt.Errorf("put target %d: %w", t.MMSI, err)
	}
	return nil
}

func (s *DurableTargetStore) List(ctx context.Context) []*model.VesselTarget {
	var out []*model.VesselTarget
	err := s.backend.ForEach(ctx, func(k uint32, v []byte) error {
		t, err := decodeTarget(v)
		if err != nil {
			s.logger.Warn("skipping undecodable target", "mmsi", k, "err", err)
			return nil
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		s.logger.Error("list targets", "err", err)
	}
	return out
}

func (s *DurableTargetStore) Len(ctx context.Context) int {
	n, err := s.backend.Len(ctx)
	if err != nil {
		s.logger.Error("count targets", "err", err)
	}
	return n
}

// Sweep deletes expired and undecodable targets, then compacts the backend.
// Each key is read again under the write lock before it is deleted, so a
// target refreshed during the sweep survives.
func (s *DurableTargetStore) Sweep(ctx context.Context) int {
	now := s.env.Now()
	keys, err := kvstore.Keys(ctx, s.backend)
	if err != nil {
		s.logger.Error("scan targets", "err", err)
		return 0
	}
	removed := 0
	for _, k := range keys {
		ok, err := s.expireKey(ctx, k, now)
		if err != nil {
			s.logger.Error("delete target", "mmsi", k, "err", err)
			continue
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("expired targets", "removed", removed)
	}
	compact(ctx, s.env, s.logger, s.backend)
	return removed
}

func (s *DurableTargetStore) expireKey(ctx context.Context, k uint32, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.backend.Get(ctx, k)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if t, err := decodeTarget(b); err == nil && !expired(t.LastReport, now, s.opts.TargetExpire) {
		return false, nil
	}
	if err := s.backend.Delete(ctx, k); err != nil {
		return false, err
	}
	return true, nil
}

func (s *DurableTargetStore) Close() error {
	var err error
	s.closed.Do(func() {
		s.sweep.stop()
		s.logger.Info("closing target store")
		err = s.backend.Close()
	})
	return err
}
