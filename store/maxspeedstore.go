package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/kvstore"
	"github.com/theoremus-urban-solutions/aistrack/model"
	"github.com/theoremus-urban-solutions/aistrack/utils"
)

// speedOf returns the speed to register for t, if any.
func speedOf(t *model.VesselTarget) (float64, bool) {
	if !t.ValidPos() || t.Sog == nil {
		return 0, false
	}
	return *t.Sog, true
}

// ringRetention is how long an idle ring is kept: the window plus two days.
func ringRetention(size int) time.Duration { return utils.Days(size + 2) }

func sortMaxSpeeds(list []model.MaxSpeed) []model.MaxSpeed {
	slices.SortFunc(list, func(a, b model.MaxSpeed) int { return a.MMSI - b.MMSI })
	return list
}

// MemoryMaxSpeedStore keeps one MaxSpeedRing per vessel in a map. Rings lock
// themselves, so registrations for different vessels do not contend.
type MemoryMaxSpeedStore struct {
	env    *internal.Env
	opts   Options
	mu     sync.RWMutex
	rings  map[int]*MaxSpeedRing
	sweep  *sweeper
	closed sync.Once
}

func NewMemoryMaxSpeedStore(env *internal.Env, opts Options) *MemoryMaxSpeedStore {
	s := &MemoryMaxSpeedStore{env: env, opts: opts, rings: map[int]*MaxSpeedRing{}}
	s.sweep = startSweeper("maxspeed", opts.CleanupInterval, opts.StopTimeout, env.Logger, func(ctx context.Context) { s.Sweep(ctx) })
	return s
}

// Register records the speed of t. The map lock is held across the ring
// update so a concurrent sweep cannot drop the ring in between.
func (s *MemoryMaxSpeedStore) Register(_ context.Context, t *model.VesselTarget) error {
	speed, ok := speedOf(t)
	if !ok {
		return nil
	}
	now := s.env.Now()
	day := utils.EpochDay(now)

	s.mu.RLock()
	r, ok := s.rings[t.MMSI]
	if ok {
		r.Register(day, speed, now)
	}
	s.mu.RUnlock()
	if ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok = s.rings[t.MMSI]; !ok {
		r = NewMaxSpeedRing(s.opts.MaxSpeedRingSize)
		s.rings[t.MMSI] = r
	}
	r.Register(day, speed, now)
	return nil
}

func (s *MemoryMaxSpeedStore) GetMaxSpeed(_ context.Context, mmsi int) (model.MaxSpeed, bool) {
	s.mu.RLock()
	r, ok := s.rings[mmsi]
	s.mu.RUnlock()
	if !ok {
		return model.MaxSpeed{}, false
	}
	return model.MaxSpeed{MMSI: mmsi, MaxSpeed: r.Max()}, true
}

func (s *MemoryMaxSpeedStore) GetMaxSpeedList(_ context.Context) []model.MaxSpeed {
	s.mu.RLock()
	list := make([]model.MaxSpeed, 0, len(s.rings))
	for mmsi, r := range s.rings {
		list = append(list, model.MaxSpeed{MMSI: mmsi, MaxSpeed: r.Max()})
	}
	s.mu.RUnlock()
	return sortMaxSpeeds(list)
}

func (s *MemoryMaxSpeedStore) Len(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rings)
}

// Sweep rolls every ring forward to today and drops the idle ones.
func (s *MemoryMaxSpeedStore) Sweep(_ context.Context) int {
	now := s.env.Now()
	today := utils.EpochDay(now)
	retention := ringRetention(s.opts.MaxSpeedRingSize)
	s.mu.Lock()
	removed := 0
	for mmsi, r := range s.rings {
		if now.Sub(r.LastUpdate()) > retention {
			delete(s.rings, mmsi)
			removed++
			continue
		}
		r.Expire(today)
	}
	s.mu.Unlock()
	if removed > 0 {
		s.env.Logger.Info("expired max speed rings", "store", "maxspeed", "removed", removed)
	}
	return removed
}

func (s *MemoryMaxSpeedStore) Close() error {
	s.closed.Do(s.sweep.stop)
	return nil
}

// DurableMaxSpeedStore keeps rings in a kvstore.Backend, decoding a private
// copy for every mutation.
type DurableMaxSpeedStore struct {
	env     *internal.Env
	opts    Options
	backend kvstore.Backend
	logger  *slog.Logger
	sweep   *sweeper
	closed  sync.Once

	// mu makes each load-modify-store of a ring atomic with respect to the
	// sweep.
	mu sync.Mutex
}

func NewDurableMaxSpeedStore(env *internal.Env, opts Options, backend kvstore.Backend) *DurableMaxSpeedStore {
	s := &DurableMaxSpeedStore{
		env:     env,
		opts:    opts,
		backend: backend,
		logger:  env.Logger.With("store", "maxspeed"),
	}
	s.sweep = startSweeper("maxspeed", opts.CleanupInterval, opts.StopTimeout, env.Logger, func(ctx context.Context) { s.Sweep(ctx) })
	return s
}

func (s *DurableMaxSpeedStore) load(ctx context.Context, mmsi int) (*MaxSpeedRing, error) {
	b, err := s.backend.Get(ctx, key(mmsi))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRing(b)
}

func (s *DurableMaxSpeedStore) Register(ctx context.Context, t *model.VesselTarget) error {
	speed, ok := speedOf(t)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.load(ctx, t.MMSI)
	if err != nil {
		s.logger.Warn("replacing unreadable max speed ring", "mmsi", t.MMSI, "err", err)
	}
	// A ring written under a different window length starts over.
	if r == nil || r.Size() != s.opts.MaxSpeedRingSize {
		r = NewMaxSpeedRing(s.opts.MaxSpeedRingSize)
	}
	now := s.env.Now()
	r.Register(utils.EpochDay(now), speed, now)
	if err := s.backend.Put(ctx, key(t.MMSI), encodeRing(r)); err != nil {
		return fmt.Errorf("put max speed ring %d: %w", t.MMSI, err)
	}
	return nil
}

func (s *DurableMaxSpeedStore) GetMaxSpeed(ctx context.Context, mmsi int) (model.MaxSpeed, bool) {
	r, err := s.load(ctx, mmsi)
	if err != nil {
		s.logger.Error("get max speed", "mmsi", mmsi, "err", err)
		return model.MaxSpeed{}, false
	}
	if r == nil {
		return model.MaxSpeed{}, false
	}
	return model.MaxSpeed{MMSI: mmsi, MaxSpeed: r.Max()}, true
}

func (s *DurableMaxSpeedStore) GetMaxSpeedList(ctx context.Context) []model.MaxSpeed {
	var list []model.MaxSpeed
	err := s.backend.ForEach(ctx, func(k uint32, v []byte) error {
		r, err := decodeRing(v)
		if err != nil {
			return nil
		}
		list = append(list, model.MaxSpeed{MMSI: int(k), MaxSpeed: r.Max()})
		return nil
	})
	if err != nil {
		s.logger.Error("list max speeds", "err", err)
	}
	return list
}

func (s *DurableMaxSpeedStore) Len(ctx context.Context) int {
	n, err := s.backend.Len(ctx)
	if err != nil {
		s.logger.Error("count max speed rings", "err", err)
	}
	return n
}

// Sweep rolls every ring forward to today, deletes idle or unreadable rings
// and compacts the backend. Rings are reloaded one at a time under the write
// lock and only written back when rolling forward changed them.
func (s *DurableMaxSpeedStore) Sweep(ctx context.Context) int {
	now := s.env.Now()
	keys, err := kvstore.Keys(ctx, s.backend)
	if err != nil {
		s.logger.Error("scan max speed rings", "err", err)
		return 0
	}
	removed := 0
	for _, k := range keys {
		ok, err := s.sweepKey(ctx, k, now)
		if err != nil {
			s.logger.Error("sweep max speed ring", "mmsi", k, "err", err)
			continue
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("expired max speed rings", "removed", removed)
	}
	compact(ctx, s.env, s.logger, s.backend)
	return removed
}

// sweepKey reports whether the ring under k was deleted.
func (s *DurableMaxSpeedStore) sweepKey(ctx context.Context, k uint32, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.backend.Get(ctx, k)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	r, err := decodeRing(b)
	if err != nil || now.Sub(r.LastUpdate()) > ringRetention(s.opts.MaxSpeedRingSize) {
		if err := s.backend.Delete(ctx, k); err != nil {
			return false, err
		}
		return true, nil
	}
	if !r.Expire(utils.EpochDay(now)) {
		return false, nil
	}
	return false, s.backend.Put(ctx, k, encodeRing(r))
}

func (s *DurableMaxSpeedStore) Close() error {
	var err error
	s.closed.Do(func() {
		s.sweep.stop()
		err = s.backend.Close()
	})
	return err
}

// SimpleMaxSpeedStore keeps the all-time maximum per vessel. Nothing expires.
type SimpleMaxSpeedStore struct {
	mu     sync.RWMutex
	speeds map[int]float64
}

func NewSimpleMaxSpeedStore() *SimpleMaxSpeedStore {
	return &SimpleMaxSpeedStore{speeds: map[int]float64{}}
}

func (s *SimpleMaxSpeedStore) Register(_ context.Context, t *model.VesselTarget) error {
	speed, ok := speedOf(t)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.speeds[t.MMSI]; !ok || speed > cur {
		s.speeds[t.MMSI] = speed
	}
	return nil
}

func (s *SimpleMaxSpeedStore) GetMaxSpeed(_ context.Context, mmsi int) (model.MaxSpeed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.speeds[mmsi]
	return model.MaxSpeed{MMSI: mmsi, MaxSpeed: v}, ok
}

func (s *SimpleMaxSpeedStore) GetMaxSpeedList(_ context.Context) []model.MaxSpeed {
	s.mu.RLock()
	list := make([]model.MaxSpeed, 0, len(s.speeds))
	for mmsi, v := range s.speeds {
		list = append(list, model.MaxSpeed{MMSI: mmsi, MaxSpeed: v})
	}
	s.mu.RUnlock()
	return sortMaxSpeeds(list)
}

func (s *SimpleMaxSpeedStore) Len(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.speeds)
}

func (s *SimpleMaxSpeedStore) Close() error { return nil }
