package store

import (
	"context"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/model"
)

// TargetStore holds the current snapshot per MMSI.
//
// List is weakly consistent: it reflects some instant during the call and is
// safe under concurrent Put.
type TargetStore interface {
	Get(ctx context.Context, mmsi int) (*model.VesselTarget, bool)
	Put(ctx context.Context, t *model.VesselTarget) error
	List(ctx context.Context) []*model.VesselTarget
	Len(ctx context.Context) int
	Close() error
}

// PastTrackStore holds recent positions per MMSI.
type PastTrackStore interface {
	Add(ctx context.Context, t *model.VesselTarget) error
	// Get returns the trimmed and downsampled track. minDist <= 0 selects the
	// configured default; maxAge <= 0 means no age limit.
	Get(ctx context.Context, mmsi int, minDist float64, maxAge time.Duration) ([]model.PastTrackPosition, bool)
	Remove(ctx context.Context, mmsi int) error
	Len(ctx context.Context) int
	Close() error
}

// MaxSpeedStore holds the rolling maximum speed per MMSI.
type MaxSpeedStore interface {
	Register(ctx context.Context, t *model.VesselTarget) error
	GetMaxSpeed(ctx context.Context, mmsi int) (model.MaxSpeed, bool)
	GetMaxSpeedList(ctx context.Context) []model.MaxSpeed
	Len(ctx context.Context) int
	Close() error
}

// Options are the retention settings shared by all stores.
type Options struct {
	TargetExpire            time.Duration
	CleanupInterval         time.Duration
	PastTrackTTL            time.Duration
	DefaultMinPastTrackDist float64
	MaxSpeedRingSize        int
	CacheSize               int
	// StopTimeout bounds how long Close waits for an in-flight sweep.
	StopTimeout time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		TargetExpire:            48 * time.Hour,
		CleanupInterval:         10 * time.Minute,
		PastTrackTTL:            time.Hour,
		DefaultMinPastTrackDist: 100,
		MaxSpeedRingSize:        30,
		CacheSize:               5000000,
		StopTimeout:             60 * time.Second,
	}
}

// expired reports whether lastReport lies more than horizon away from now in
// either direction. Reports from the future are tolerated up to the same
// horizon.
func expired(lastReport, now time.Time, horizon time.Duration) bool {
	age := now.Sub(lastReport)
	if age < 0 {
		return -age > horizon
	}
	return age > horizon
}

func key(mmsi int) uint32 { return uint32(mmsi) }
