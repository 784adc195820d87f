package store

import (
	"sort"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/model"
	"github.com/theoremus-urban-solutions/aistrack/utils"
)

// PastTrack is a time-ordered set of positions for one vessel. Two positions
// with the same millisecond timestamp are the same element; the first one
// inserted wins.
type PastTrack struct {
	mu     sync.Mutex
	points []model.PastTrackPosition
}

func NewPastTrack() *PastTrack { return &PastTrack{} }

// Add inserts pos in time order. It reports false when a position with the
// same timestamp is already present.
func (p *PastTrack) Add(pos model.PastTrackPosition) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.points)
	if n == 0 || p.points[n-1].Time < pos.Time {
		p.points = append(p.points, pos)
		return true
	}
	i := sort.Search(n, func(i int) bool { return p.points[i].Time >= pos.Time })
	if i < n && p.points[i].Time == pos.Time {
		return false
	}
	p.points = append(p.points, model.PastTrackPosition{})
	copy(p.points[i+1:], p.points[i:])
	p.points[i] = pos
	return true
}

// Trim drops every position older than now-ttl and returns how many were
// removed.
func (p *PastTrack) Trim(now time.Time, ttl time.Duration) int {
	cutoff := now.Add(-ttl).UnixMilli()

	p.mu.Lock()
	defer p.mu.Unlock()
	i := 0
	for i < len(p.points) && p.points[i].Time < cutoff {
		i++
	}
	if i == 0 {
		return 0
	}
	p.points = append(p.points[:0:0], p.points[i:]...)
	return i
}

// NeedsTrimming reports whether any position is older than now-ttl.
func (p *PastTrack) NeedsTrimming(now time.Time, ttl time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.points) > 0 && p.points[0].Time < now.Add(-ttl).UnixMilli()
}

func (p *PastTrack) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.points)
}

// Points returns a copy of the positions in time order.
func (p *PastTrack) Points() []model.PastTrackPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.PastTrackPosition(nil), p.points...)
}

// DownSample thins a time-ordered track. The first point is always kept;
// after that a point is kept once its rhumb-line distance from the last kept
// point exceeds minDist metres. Finally the kept points older than now-age
// are dropped. age <= 0 means no age limit.
func DownSample(points []model.PastTrackPosition, minDist float64, age time.Duration, now time.Time) []model.PastTrackPosition {
	if len(points) == 0 {
		return []model.PastTrackPosition{}
	}
	out := []model.PastTrackPosition{points[0]}
	last := points[0]
	for _, pos := range points[1:] {
		if utils.RhumbLineDistance(last.Lat, last.Lon, pos.Lat, pos.Lon) > minDist {
			out = append(out, pos)
			last = pos
		}
	}
	if age <= 0 {
		return out
	}
	cutoff := now.Add(-age).UnixMilli()
	start := 0
	for start < len(out) && out[start].Time < cutoff {
		start++
	}
	return out[start:]
}
