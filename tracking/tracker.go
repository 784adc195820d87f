package tracking

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/model"
	"github.com/theoremus-urban-solutions/aistrack/store"
)

// Options select which stores a report feeds and how snapshots merge.
type Options struct {
	PastTrack        bool
	RegisterMaxSpeed bool
	// RetainUnrelatedFields keeps the position on static-only updates and the
	// static data on position updates.
	RetainUnrelatedFields bool
}

// Outcome describes what Handle did with a report.
type Outcome int

const (
	// Dropped: unusable payload, unknown class or invalid MMSI.
	Dropped Outcome = iota
	// Ignored: a valid report for a non-vessel class.
	Ignored
	// Stale: older than the stored position. Speed and history were still
	// updated, the current snapshot was not.
	Stale
	Updated
	// Suppressed: the tracker is shutting down.
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Ignored:
		return "ignored"
	case Stale:
		return "stale"
	case Updated:
		return "updated"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

type Tracker struct {
	env     *internal.Env
	opts    Options
	logger  *slog.Logger
	targets store.TargetStore
	tracks  store.PastTrackStore
	speeds  store.MaxSpeedStore

	mu       sync.RWMutex
	onUpdate []func(*model.VesselTarget)

	queue *queue
	done  chan struct{}
}

// New returns a running Tracker. The tracker owns the stores and closes them
// in Stop.
func New(env *internal.Env, opts Options, targets store.TargetStore, tracks store.PastTrackStore, speeds store.MaxSpeedStore) *Tracker {
	t := &Tracker{
		env:     env,
		opts:    opts,
		logger:  env.Logger.With("component", "tracker"),
		targets: targets,
		tracks:  tracks,
		speeds:  speeds,
		queue:   newQueue(),
		done:    make(chan struct{}),
	}
	go t.consume()
	return t
}

// OnUpdate registers fn to be called with every snapshot written to the
// target store. fn runs on the ingest goroutine and must not block.
func (t *Tracker) OnUpdate(fn func(*model.VesselTarget)) {
	t.mu.Lock()
	t.onUpdate = append(t.onUpdate, fn)
	t.mu.Unlock()
}

// Ingest queues r for processing. It never blocks and never fails; reports
// arriving after Stop are discarded.
func (t *Tracker) Ingest(r model.Report) {
	if !t.queue.push(r) {
		t.logger.Debug("tracker stopped, discarding report", "mmsi", r.MMSI)
	}
}

// QueueDepth returns the number of reports waiting to be handled.
func (t *Tracker) QueueDepth() int { return t.queue.len() }

func (t *Tracker) consume() {
	defer close(t.done)
	ctx := context.Background()
	for {
		batch, closed := t.queue.drain()
		for _, r := range batch {
			t.safeHandle(ctx, r)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-t.queue.ready
	}
}

func (t *Tracker) safeHandle(ctx context.Context, r model.Report) {
	defer func() {
		if p := recover(); p != nil {
			t.logger.Error("report handling panicked", "mmsi", r.MMSI, "panic", p, "stack", string(debug.Stack()))
		}
	}()
	t.Handle(ctx, r)
}

// Handle applies a single report. It is not safe to call concurrently for
// the same MMSI; Ingest serializes all reports.
func (t *Tracker) Handle(ctx context.Context, r model.Report) Outcome {
	if !r.Usable() || !r.TargetType.Known() {
		return Dropped
	}
	if !r.TargetType.IsVessel() {
		return Ignored
	}
	if !model.ValidMMSI(r.MMSI) {
		return Dropped
	}

	n := model.NewVesselTarget(r)
	prev, found := t.targets.Get(ctx, n.MMSI)

	stale := found && n.HasPosition() && prev.HasPosition() && n.LastPosReport.Before(*prev.LastPosReport)
	if found && !stale && prev.TargetType != n.TargetType {
		t.logger.Info("target type changed, dropping prior state",
			"mmsi", n.MMSI, "from", string(prev.TargetType), "to", string(n.TargetType))
		prev, found = nil, false
		if t.env.Stopped() {
			return Suppressed
		}
		if err := t.tracks.Remove(ctx, n.MMSI); err != nil {
			t.logger.Error("remove past track", "mmsi", n.MMSI, "err", err)
		}
	}

	if t.opts.RegisterMaxSpeed {
		if t.env.Stopped() {
			return Suppressed
		}
		if err := t.speeds.Register(ctx, n); err != nil {
			t.logger.Error("register max speed", "mmsi", n.MMSI, "err", err)
		}
	}
	if t.opts.PastTrack {
		if t.env.Stopped() {
			return Suppressed
		}
		if err := t.tracks.Add(ctx, n); err != nil {
			t.logger.Error("add past track", "mmsi", n.MMSI, "err", err)
		}
	}
	if stale {
		t.logger.Debug("out of order position report", "mmsi", n.MMSI,
			"report", *n.LastPosReport, "stored", *prev.LastPosReport)
		return Stale
	}

	merged := n
	if found {
		if t.opts.RetainUnrelatedFields {
			merged = prev.MergeRetaining(n)
		} else {
			merged = prev.Merge(n)
		}
	}
	if t.env.Stopped() {
		return Suppressed
	}
	if err := t.targets.Put(ctx, merged); err != nil {
		t.logger.Error("put target", "mmsi", n.MMSI, "err", err)
		return Dropped
	}
	t.notify(merged)
	return Updated
}

func (t *Tracker) notify(v *model.VesselTarget) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, fn := range t.onUpdate {
		fn(v)
	}
}

// Stop stops accepting reports, waits for the queue to drain until ctx is
// done, then sets the shutdown flag and closes every store.
func (t *Tracker) Stop(ctx context.Context) error {
	t.queue.close()
	select {
	case <-t.done:
	case <-ctx.Done():
		t.logger.Warn("queue not drained before shutdown", "pending", t.queue.len())
	}
	t.env.Stop()

	stores := []struct {
		name string
		c    interface{ Close() error }
	}{
		{"targets", t.targets},
		{"pasttracks", t.tracks},
		{"maxspeed", t.speeds},
	}
	var firstErr error
	for _, s := range stores {
		if err := s.c.Close(); err != nil {
			t.logger.Error("close store", "store", s.name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
