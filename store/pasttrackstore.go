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

// MemoryPastTrackStore keeps tracks in a map and mutates them in place.
type MemoryPastTrackStore struct {
	env    *internal.Env
	opts   Options
	mu     sync.RWMutex
	tracks map[int]*PastTrack
	sweep  *sweeper
	closed sync.Once
}

func NewMemoryPastTrackStore(env *internal.Env, opts Options) *MemoryPastTrackStore {
	s := &MemoryPastTrackStore{env: env, opts: opts, tracks: map[int]*PastTrack{}}
	s.sweep = startSweeper("pasttracks", opts.CleanupInterval, opts.StopTimeout, env.Logger, func(ctx context.Context) { s.Sweep(ctx) })
	return s
}

func (s *MemoryPastTrackStore) Add(_ context.Context, t *model.VesselTarget) error {
	pos, ok := model.PastTrackPositionOf(t)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tracks[t.MMSI]
	if !ok {
		p = NewPastTrack()
		s.tracks[t.MMSI] = p
	}
	p.Add(pos)
	p.Trim(s.env.Now(), s.opts.PastTrackTTL)
	if p.Len() == 0 {
		delete(s.tracks, t.MMSI)
	}
	return nil
}

func (s *MemoryPastTrackStore) Get(_ context.Context, mmsi int, minDist float64, maxAge time.Duration) ([]model.PastTrackPosition, bool) {
	s.mu.RLock()
	p, ok := s.tracks[mmsi]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := s.env.Now()
	p.Trim(now, s.opts.PastTrackTTL)
	return DownSample(p.Points(), s.minDist(minDist), maxAge, now), true
}

func (s *MemoryPastTrackStore) Remove(_ context.Context, mmsi int) error {
	s.mu.Lock()
	delete(s.tracks, mmsi)
	s.mu.Unlock()
	return nil
}

func (s *MemoryPastTrackStore) Len(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Sweep trims every track and drops those left empty.
func (s *MemoryPastTrackStore) Sweep(_ context.Context) int {
	now := s.env.Now()
	s.mu.Lock()
	removed := 0
	for mmsi, p := range s.tracks {
		if p.NeedsTrimming(now, s.opts.PastTrackTTL) {
			p.Trim(now, s.opts.PastTrackTTL)
		}
		if p.Len() == 0 {
			delete(s.tracks, mmsi)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		s.env.Logger.Info("expired past tracks", "store", "pasttracks", "removed", removed)
	}
	return removed
}

func (s *MemoryPastTrackStore) Close() error {
	s.closed.Do(s.sweep.stop)
	return nil
}

func (s *MemoryPastTrackStore) minDist(d float64) float64 {
	if d <= 0 {
		return s.opts.DefaultMinPastTrackDist
	}
	return d
}

// DurablePastTrackStore keeps tracks in a kvstore.Backend. Every mutation
// works on a freshly decoded copy which is encoded and written back whole.
type DurablePastTrackStore struct {
	env     *internal.Env
	opts    Options
	backend kvstore.Backend
	logger  *slog.Logger
	sweep   *sweeper
	closed  sync.Once

	// mu makes each load-modify-store of a track atomic with respect to the
	// sweep.
	mu sync.Mutex
}

func NewDurablePastTrackStore(env *internal.Env, opts Options, backend kvstore.Backend) *DurablePastTrackStore {
	s := &DurablePastTrackStore{
		env:     env,
		opts:    opts,
		backend: backend,
		logger:  env.Logger.With("store", "pasttracks"),
	}
	s.sweep = startSweeper("pasttracks", opts.CleanupInterval, opts.StopTimeout, env.Logger, func(ctx context.Context) { s.Sweep(ctx) })
	return s
}

// load returns the stored track, or nil when the key is unknown.
func (s *DurablePastTrackStore) load(ctx context.Context, mmsi int) (*PastTrack, error) {
	b, err := s.backend.Get(ctx, key(mmsi))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodePastTrack(b)
}

func (s *DurablePastTrackStore) Add(ctx context.Context, t *model.VesselTarget) error {
	pos, ok := model.PastTrackPositionOf(t)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx, t.MMSI)
	if err != nil {
		s.logger.Warn("replacing unreadable past track", "mmsi", t.MMSI, "err", err)
	}
	if p == nil {
		p = NewPastTrack()
	}
	p.Add(pos)
	p.Trim(s.env.Now(), s.opts.PastTrackTTL)
	if p.Len() == 0 {
		return s.remove(ctx, t.MMSI)
	}
	if err := s.backend.Put(ctx, key(t.MMSI), encodePastTrack(p)); err != nil {
		return fmt.Errorf("put past track %d: %w", t.MMSI, err)
	}
	return nil
}

func (s *DurablePastTrackStore) Get(ctx context.Context, mmsi int, minDist float64, maxAge time.Duration) ([]model.PastTrackPosition, bool) {
	p, err := s.load(ctx, mmsi)
	if err != nil {
		s.logger.Error("get past track", "mmsi", mmsi, "err", err)
		return nil, false
	}
	if p == nil {
		return nil, false
	}
	if minDist <= 0 {
		minDist = s.opts.DefaultMinPastTrackDist
	}
	now := s.env.Now()
	p.Trim(now, s.opts.PastTrackTTL)
	return DownSample(p.Points(), minDist, maxAge, now), true
}

func (s *DurablePastTrackStore) Remove(ctx context.Context, mmsi int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(ctx, mmsi)
}

func (s *DurablePastTrackStore) remove(ctx context.Context, mmsi int) error {
	err := s.backend.Delete(ctx, key(mmsi))
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("remove past track %d: %w", mmsi, err)
	}
	return nil
}

func (s *DurablePastTrackStore) Len(ctx context.Context) int {
	n, err := s.backend.Len(ctx)
	if err != nil {
		s.logger.Error("count past tracks", "err", err)
	}
	return n
}

// Sweep trims every track, deletes the empty or unreadable ones and compacts
// the backend. Tracks are reloaded one at a time under the write lock.
func (s *DurablePastTrackStore) Sweep(ctx context.Context) int {
	now := s.env.Now()
	keys, err := kvstore.Keys(ctx, s.backend)
	if err != nil {
		s.logger.Error("scan past tracks", "err", err)
		return 0
	}
	trimmed, removed := 0, 0
	for _, k := range keys {
		switch res, err := s.sweepKey(ctx, int(k), now); {
		case err != nil:
			s.logger.Error("sweep past track", "mmsi", k, "err", err)
		case res == trackRemoved:
			removed++
		case res == trackTrimmed:
			trimmed++
		}
	}
	if removed > 0 || trimmed > 0 {
		s.logger.Info("swept past tracks", "trimmed", trimmed, "removed", removed)
	}
	compact(ctx, s.env, s.logger, s.backend)
	return removed
}

type sweepResult int

const (
	trackKept sweepResult = iota
	trackTrimmed
	trackRemoved
)

func (s *DurablePastTrackStore) sweepKey(ctx context.Context, mmsi int, now time.Time) (sweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.backend.Get(ctx, key(mmsi))
	if errors.Is(err, kvstore.ErrNotFound) {
		return trackKept, nil
	}
	if err != nil {
		return trackKept, err
	}
	p, err := decodePastTrack(b)
	if err == nil && p.Len() > 0 && !p.NeedsTrimming(now, s.opts.PastTrackTTL) {
		return trackKept, nil
	}
	if err == nil {
		p.Trim(now, s.opts.PastTrackTTL)
	}
	if err != nil || p.Len() == 0 {
		if err := s.remove(ctx, mmsi); err != nil {
			return trackKept, err
		}
		return trackRemoved, nil
	}
	if err := s.backend.Put(ctx, key(mmsi), encodePastTrack(p)); err != nil {
		return trackKept, fmt.Errorf("put trimmed past track %d: %w", mmsi, err)
	}
	return trackTrimmed, nil
}

func (s *DurablePastTrackStore) Close() error {
	var err error
	s.closed.Do(func() {
		s.sweep.stop()
		err = s.backend.Close()
	})
	return err
}
