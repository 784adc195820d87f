package store

import (
	"math"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/utils"
)

const noDay = math.MinInt64

// MaxSpeedRing keeps the highest speed seen on each of the last N days in a
// ring indexed by epochDay mod N.
type MaxSpeedRing struct {
	mu         sync.Mutex
	buckets    []float64
	lastUpdate int64 // epoch ms
	day        int64 // newest epoch day the ring has rolled forward to
}

func NewMaxSpeedRing(size int) *MaxSpeedRing {
	if size < 1 {
		size = 1
	}
	return &MaxSpeedRing{buckets: make([]float64, size), day: noDay}
}

func (r *MaxSpeedRing) index(day int64) int {
	n := int64(len(r.buckets))
	return int(((day % n) + n) % n)
}

// advance zeroes the buckets of days skipped since the ring last moved and
// reports whether the ring moved. Caller holds r.mu.
func (r *MaxSpeedRing) advance(day int64) bool {
	if r.day == noDay {
		r.day = day
		return true
	}
	if day <= r.day {
		return false
	}
	if day-r.day >= int64(len(r.buckets)) {
		clear(r.buckets)
	} else {
		for d := r.day + 1; d <= day; d++ {
			r.buckets[r.index(d)] = 0
		}
	}
	r.day = day
	return true
}

// expire zeroes the bucket for day-(N-1), the slot the next day reuses, so a
// speed stays visible on its own day and the N-2 days after it. It reports
// whether the bucket held a speed. Caller holds r.mu.
func (r *MaxSpeedRing) expire(day int64) bool {
	i := r.index(day - int64(len(r.buckets)-1))
	if r.buckets[i] == 0 {
		return false
	}
	r.buckets[i] = 0
	return true
}

// Register records speed for day. A lower speed never lowers the bucket.
func (r *MaxSpeedRing) Register(day int64, speed float64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advance(day)
	r.lastUpdate = now.UnixMilli()
	if i := r.index(day); r.buckets[i] < speed {
		r.buckets[i] = speed
	}
	r.expire(day)
}

// Expire rolls the ring forward to day without registering a speed and
// reports whether that changed the ring. A day before the ring's newest day
// is ignored.
func (r *MaxSpeedRing) Expire(day int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.day != noDay && day < r.day {
		return false
	}
	moved := r.advance(day)
	zeroed := r.expire(day)
	return moved || zeroed
}

// Max returns the highest speed over the live buckets.
func (r *MaxSpeedRing) Max() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var m float64
	for _, s := range r.buckets {
		m = math.Max(m, s)
	}
	return m
}

func (r *MaxSpeedRing) LastUpdate() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return utils.FromEpochMillis(r.lastUpdate)
}

func (r *MaxSpeedRing) Size() int { return len(r.buckets) }

func (r *MaxSpeedRing) Clone() *MaxSpeedRing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &MaxSpeedRing{
		buckets:    append([]float64(nil), r.buckets...),
		lastUpdate: r.lastUpdate,
		day:        r.day,
	}
}
