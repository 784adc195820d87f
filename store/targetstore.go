package store

import (
	"context"
	"sync"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/model"
)

// MemoryTargetStore keeps snapshots in a map. Nothing survives a restart.
type MemoryTargetStore struct {
	env    *internal.Env
	opts   Options
	mu     sync.RWMutex
	m      map[int]*model.VesselTarget
	sweep  *sweeper
	closed sync.Once
}

func NewMemoryTargetStore(env *internal.Env, opts Options) *MemoryTargetStore {
	s := &MemoryTargetStore{env: env, opts: opts, m: map[int]*model.VesselTarget{}}
	s.sweep = startSweeper("targets", opts.CleanupInterval, opts.StopTimeout, env.Logger, func(ctx context.Context) { s.Sweep(ctx) })
	return s
}

func (s *MemoryTargetStore) Get(_ context.Context, mmsi int) (*model.VesselTarget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.m[mmsi]
	return t, ok
}

func (s *MemoryTargetStore) Put(_ context.Context, t *model.VesselTarget) error {
	s.mu.Lock()
	s.m[t.MMSI] = t
	s.mu.Unlock()
	return nil
}

func (s *MemoryTargetStore) List(_ context.Context) []*model.VesselTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.VesselTarget, 0, len(s.m))
	for _, t := range s.m {
		out = append(out, t)
	}
	return out
}

func (s *MemoryTargetStore) Len(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Sweep removes targets whose last report is outside the expiry horizon and
// returns how many were removed.
func (s *MemoryTargetStore) Sweep(_ context.Context) int {
	now := s.env.Now()
	s.mu.Lock()
	removed := 0
	for mmsi, t := range s.m {
		if expired(t.LastReport, now, s.opts.TargetExpire) {
			delete(s.m, mmsi)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		s.env.Logger.Info("expired targets", "store", "targets", "removed", removed)
	}
	return removed
}

func (s *MemoryTargetStore) Close() error {
	s.closed.Do(s.sweep.stop)
	return nil
}
