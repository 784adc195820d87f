package store

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/model"
)

// CacheTargetStore keeps snapshots in a size-bounded LRU whose entries also
// expire TargetExpire after their last write.
type CacheTargetStore struct {
	env    *internal.Env
	opts   Options
	cache  *expirable.LRU[int, *model.VesselTarget]
	sweep  *sweeper
	closed sync.Once

	// mu orders Put against the sweep's Peek-then-Remove.
	mu sync.Mutex
}

func NewCacheTargetStore(env *internal.Env, opts Options) *CacheTargetStore {
	s := &CacheTargetStore{
		env:   env,
		opts:  opts,
		cache: expirable.NewLRU[int, *model.VesselTarget](opts.CacheSize, nil, opts.TargetExpire),
	}
	s.sweep = startSweeper("targets", opts.CleanupInterval, opts.StopTimeout, env.Logger, func(ctx context.Context) { s.Sweep(ctx) })
	return s
}

func (s *CacheTargetStore) Get(_ context.Context, mmsi int) (*model.VesselTarget, bool) {
	return s.cache.Get(mmsi)
}

func (s *CacheTargetStore) Put(_ context.Context, t *model.VesselTarget) error {
	s.mu.Lock()
	s.cache.Add(t.MMSI, t)
	s.mu.Unlock()
	return nil
}

func (s *CacheTargetStore) List(_ context.Context) []*model.VesselTarget {
	return s.cache.Values()
}

func (s *CacheTargetStore) Len(_ context.Context) int { return s.cache.Len() }

// Sweep evicts entries by report time. The cache itself only knows write
// time, which differs from report time for replayed data.
func (s *CacheTargetStore) Sweep(_ context.Context) int {
	now := s.env.Now()
	removed := 0
	for _, mmsi := range s.cache.Keys() {
		if s.expireKey(mmsi, now) {
			removed++
		}
	}
	if removed > 0 {
		s.env.Logger.Info("expired targets", "store", "targets", "removed", removed)
	}
	return removed
}

func (s *CacheTargetStore) expireKey(mmsi int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.cache.Peek(mmsi)
	return ok && expired(t.LastReport, now, s.opts.TargetExpire) && s.cache.Remove(mmsi)
}

func (s *CacheTargetStore) Close() error {
	s.closed.Do(func() {
		s.sweep.stop()
		s.cache.Purge()
	})
	return nil
}
