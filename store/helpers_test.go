package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/kvstore"
	"github.com/theoremus-urban-solutions/aistrack/model"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func testEnv(start time.Time) (*internal.Env, *clock) {
	c := &clock{now: start}
	env := internal.NewEnv(nil)
	env.Now = c.Now
	return env, c
}

// testOptions disables the background sweepers; tests call Sweep directly.
func testOptions() Options {
	o := DefaultOptions()
	o.CleanupInterval = 0
	o.CacheSize = 1000
	return o
}

func kvstoreOpen(dir, name string) (kvstore.Backend, error) {
	return kvstore.Open(context.Background(), kvstore.BoltOpener{Dir: dir, Name: name}, internal.NewEnv(nil).Logger)
}

func openBolt(t *testing.T, name string) kvstore.Backend {
	t.Helper()
	b, err := kvstoreOpen(t.TempDir(), name)
	require.NoError(t, err)
	return b
}

func vessel(mmsi int, ts time.Time, lat, lon, sog float64) *model.VesselTarget {
	return model.NewVesselTarget(model.Report{
		MMSI:       mmsi,
		TargetType: model.TypeA,
		Timestamp:  ts,
		Position: &model.PositionReport{
			Lat: model.Ptr(lat),
			Lon: model.Ptr(lon),
			Sog: model.Ptr(sog),
			Cog: model.Ptr(180.0),
		},
	})
}
