package tracking

import (
	"context"
	"slices"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/model"
)

// GetCurrent returns the current snapshot for mmsi.
func (t *Tracker) GetCurrent(ctx context.Context, mmsi int) (*model.VesselTarget, bool) {
	return t.targets.Get(ctx, mmsi)
}

// ListCurrent returns the snapshots matching f, ordered by MMSI.
func (t *Tracker) ListCurrent(ctx context.Context, f *Filter) []*model.VesselTarget {
	now := t.env.Now()
	all := t.targets.List(ctx)
	out := make([]*model.VesselTarget, 0, len(all))
	for _, v := range all {
		if f.Match(v, now) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b *model.VesselTarget) int { return a.MMSI - b.MMSI })
	return out
}

// CountCurrent returns how many snapshots match f.
func (t *Tracker) CountCurrent(ctx context.Context, f *Filter) int {
	if f == nil {
		return t.targets.Len(ctx)
	}
	now := t.env.Now()
	n := 0
	for _, v := range t.targets.List(ctx) {
		if f.Match(v, now) {
			n++
		}
	}
	return n
}

// GetHistory returns the downsampled past track of mmsi. minDist <= 0 uses
// the configured default; maxAge <= 0 applies no age limit beyond retention.
func (t *Tracker) GetHistory(ctx context.Context, mmsi int, minDist float64, maxAge time.Duration) ([]model.PastTrackPosition, bool) {
	return t.tracks.Get(ctx, mmsi, minDist, maxAge)
}

// GetMaxSpeed returns the rolling maximum speed of mmsi. With fallback set, a
// vessel without a recorded speed gets the default for its ship type.
func (t *Tracker) GetMaxSpeed(ctx context.Context, mmsi int, fallback bool) (model.MaxSpeed, bool) {
	ms, ok := t.speeds.GetMaxSpeed(ctx, mmsi)
	if (ok && ms.MaxSpeed > 0) || !fallback {
		return ms, ok
	}
	v, found := t.targets.Get(ctx, mmsi)
	if !found || v.ShipType == nil {
		return ms, ok
	}
	if speed, known := model.DefaultMaxSpeed(*v.ShipType); known {
		return model.MaxSpeed{MMSI: mmsi, MaxSpeed: speed}, true
	}
	return ms, ok
}

func (t *Tracker) GetMaxSpeedList(ctx context.Context) []model.MaxSpeed {
	return t.speeds.GetMaxSpeedList(ctx)
}

// Stats are the sizes of the stores and the ingest backlog.
type Stats struct {
	Targets    int `json:"targets"`
	PastTracks int `json:"pastTracks"`
	MaxSpeeds  int `json:"maxSpeeds"`
	QueueDepth int `json:"queueDepth"`
}

func (t *Tracker) Stats(ctx context.Context) Stats {
	return Stats{
		Targets:    t.targets.Len(ctx),
		PastTracks: t.tracks.Len(ctx),
		MaxSpeeds:  t.speeds.Len(ctx),
		QueueDepth: t.QueueDepth(),
	}
}
