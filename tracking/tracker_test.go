package tracking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/model"
	"github.com/theoremus-urban-solutions/aistrack/store"
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

func newTestTracker(t *testing.T, opts Options) (*Tracker, *internal.Env, *clock) {
	t.Helper()
	c := &clock{now: t0}
	env := internal.NewEnv(nil)
	env.Now = c.Now
	so := store.DefaultOptions()
	so.CleanupInterval = 0
	so.DefaultMinPastTrackDist = 1
	tr := New(env, opts,
		store.NewMemoryTargetStore(env, so),
		store.NewMemoryPastTrackStore(env, so),
		store.NewMemoryMaxSpeedStore(env, so),
	)
	t.Cleanup(func() { _ = tr.Stop(context.Background()) })
	return tr, env, c
}

func position(mmsi int, tt model.TargetType, ts time.Time, lat, lon, sog float64) model.Report {
	return model.Report{
		MMSI:       mmsi,
		TargetType: tt,
		Timestamp:  ts,
		Position: &model.PositionReport{
			Lat: model.Ptr(lat),
			Lon: model.Ptr(lon),
			Sog: model.Ptr(sog),
			Cog: model.Ptr(45.0),
		},
	}
}

func static(mmsi int, tt model.TargetType, ts time.Time, name, callsign string) model.Report {
	return model.Report{
		MMSI:       mmsi,
		TargetType: tt,
		Timestamp:  ts,
		Static: &model.StaticReport{
			Name:     model.Ptr(name),
			Callsign: model.Ptr(callsign),
		},
	}
}

func TestHandle_OutOfOrderThenStaticScenario(t *testing.T) {
	ctx := context.Background()
	tr, _, clk := newTestTracker(t, Options{PastTrack: true, RegisterMaxSpeed: true})
	const mmsi = 219000185

	clk.Set(t0.Add(1000 * time.Second))
	require.Equal(t, Updated, tr.Handle(ctx, position(mmsi, model.TypeA, t0.Add(1000*time.Second), 55.0, 12.0, 10.0)))
	require.Equal(t, Stale, tr.Handle(ctx, position(mmsi, model.TypeA, t0.Add(900*time.Second), 56.0, 13.0, 25.0)))

	cur, ok := tr.GetCurrent(ctx, mmsi)
	require.True(t, ok)
	assert.Equal(t, 55.0, *cur.Lat)
	assert.Equal(t, 12.0, *cur.Lon)
	assert.Equal(t, 10.0, *cur.Sog)
	assert.Equal(t, t0.Add(1000*time.Second), *cur.LastPosReport)

	// The stale report still counts towards speed and history.
	ms, ok := tr.GetMaxSpeed(ctx, mmsi, false)
	require.True(t, ok)
	assert.Equal(t, 25.0, ms.MaxSpeed)
	track, ok := tr.GetHistory(ctx, mmsi, 0, 0)
	require.True(t, ok)
	assert.Len(t, track, 2)

	require.Equal(t, Updated, tr.Handle(ctx, static(mmsi, model.TypeA, t0.Add(1010*time.Second), "NORDIC STAR", "OZAB2")))
	cur, ok = tr.GetCurrent(ctx, mmsi)
	require.True(t, ok)
	assert.Equal(t, "NORDIC STAR", *cur.Name)
	assert.Equal(t, "OZAB2", *cur.Callsign)
	// Static-only updates do not carry movement fields forward.
	assert.Nil(t, cur.Lat)
	assert.Nil(t, cur.Sog)
	assert.Equal(t, t0.Add(1000*time.Second), *cur.LastPosReport)
	assert.Equal(t, t0.Add(1010*time.Second), cur.LastReport)
}

func TestHandle_RetainUnrelatedFields(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t, Options{RetainUnrelatedFields: true})

	tr.Handle(ctx, position(219000185, model.TypeA, t0, 55.0, 12.0, 10.0))
	tr.Handle(ctx, static(219000185, model.TypeA, t0.Add(time.Second), "NORDIC STAR", "OZAB2"))

	cur, ok := tr.GetCurrent(ctx, 219000185)
	require.True(t, ok)
	require.NotNil(t, cur.Lat)
	assert.Equal(t, 55.0, *cur.Lat)
	assert.Equal(t, "NORDIC STAR", *cur.Name)
}

func TestHandle_EqualTimestampIsAccepted(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t, Options{})

	tr.Handle(ctx, position(219000185, model.TypeA, t0, 55.0, 12.0, 10.0))
	assert.Equal(t, Updated, tr.Handle(ctx, position(219000185, model.TypeA, t0, 55.5, 12.0, 10.0)))

	cur, _ := tr.GetCurrent(ctx, 219000185)
	assert.Equal(t, 55.5, *cur.Lat)
}

func TestHandle_FiltersReports(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t, Options{PastTrack: true})

	tests := []struct {
		name   string
		report model.Report
		want   Outcome
	}{
		{"no payload", model.Report{MMSI: 219000185, TargetType: model.TypeA, Timestamp: t0}, Dropped},
		{"unknown class", position(219000185, model.TypeUnknown, t0, 55, 12, 1), Dropped},
		{"short mmsi", position(99999999, model.TypeA, t0, 55, 12, 1), Dropped},
		{"long mmsi", position(1000000000, model.TypeB, t0, 55, 12, 1), Dropped},
		{"aid to navigation", position(992191000, model.TypeAtoN, t0, 55, 12, 0), Ignored},
		{"base station", position(2190001, model.TypeBaseStation, t0, 55, 12, 0), Ignored},
		{"class B", position(219000185, model.TypeB, t0, 55, 12, 1), Updated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tr.Handle(ctx, tc.report))
		})
	}
	assert.Equal(t, 1, tr.CountCurrent(ctx, nil))
}

func TestHandle_IdentityChangeDropsPriorState(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t, Options{PastTrack: true})
	const mmsi = 219000185

	tr.Handle(ctx, position(mmsi, model.TypeA, t0, 55.0, 12.0, 10.0))
	tr.Handle(ctx, position(mmsi, model.TypeA, t0.Add(time.Minute), 55.1, 12.0, 10.0))
	tr.Handle(ctx, static(mmsi, model.TypeA, t0.Add(2*time.Minute), "NORDIC STAR", "OZAB2"))
	_, ok := tr.GetHistory(ctx, mmsi, 0, 0)
	require.True(t, ok)

	require.Equal(t, Updated, tr.Handle(ctx, model.Report{
		MMSI:       mmsi,
		TargetType: model.TypeB,
		Timestamp:  t0.Add(3 * time.Minute),
		Static:     &model.StaticReport{Callsign: model.Ptr("OXYZ9")},
	}))

	cur, ok := tr.GetCurrent(ctx, mmsi)
	require.True(t, ok)
	assert.Equal(t, model.TypeB, cur.TargetType)
	assert.Nil(t, cur.Name, "class A static data must not leak into the new identity")
	assert.Equal(t, "OXYZ9", *cur.Callsign)
	assert.Nil(t, cur.LastPosReport)

	_, ok = tr.GetHistory(ctx, mmsi, 0, 0)
	assert.False(t, ok)
}

func TestHandle_ClassBStaticFallsBack(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t, Options{})
	const mmsi = 211000001

	tr.Handle(ctx, model.Report{MMSI: mmsi, TargetType: model.TypeB, Timestamp: t0,
		Static: &model.StaticReport{Name: model.Ptr("SEA BREEZE")}})
	tr.Handle(ctx, model.Report{MMSI: mmsi, TargetType: model.TypeB, Timestamp: t0.Add(time.Second),
		Static: &model.StaticReport{Callsign: model.Ptr("DA1234")}})

	cur, _ := tr.GetCurrent(ctx, mmsi)
	assert.Equal(t, "SEA BREEZE", *cur.Name)
	assert.Equal(t, "DA1234", *cur.Callsign)
}

func TestHandle_ShutdownSuppressesMutation(t *testing.T) {
	ctx := context.Background()
	tr, env, _ := newTestTracker(t, Options{PastTrack: true, RegisterMaxSpeed: true})

	tr.Handle(ctx, position(219000185, model.TypeA, t0, 55.0, 12.0, 10.0))
	env.Stop()

	assert.Equal(t, Suppressed, tr.Handle(ctx, position(219000186, model.TypeA, t0, 55.0, 12.0, 10.0)))
	assert.Equal(t, Suppressed, tr.Handle(ctx, position(219000185, model.TypeA, t0.Add(time.Second), 56.0, 12.0, 20.0)))

	cur, ok := tr.GetCurrent(ctx, 219000185)
	require.True(t, ok)
	assert.Equal(t, 55.0, *cur.Lat)
	_, ok = tr.GetCurrent(ctx, 219000186)
	assert.False(t, ok)
	assert.Equal(t, Stats{Targets: 1, PastTracks: 1, MaxSpeeds: 1}, tr.Stats(ctx))
}

func TestIngest_AppliesInOrderAndDrainsOnStop(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t, Options{PastTrack: true})

	var updates atomic.Int32
	tr.OnUpdate(func(*model.VesselTarget) { updates.Add(1) })

	for i := 0; i < 500; i++ {
		ts := t0.Add(time.Duration(i) * time.Second)
		tr.Ingest(position(219000000+i%5, model.TypeA, ts, 55+float64(i)*0.001, 12, 8))
	}
	require.NoError(t, tr.Stop(ctx))

	assert.Equal(t, int32(500), updates.Load())
	assert.Equal(t, 0, tr.QueueDepth())
	cur, ok := tr.GetCurrent(ctx, 219000004)
	require.True(t, ok)
	assert.Equal(t, t0.Add(499*time.Second), *cur.LastPosReport)

	tr.Ingest(position(219000185, model.TypeA, t0, 55, 12, 1))
	_, ok = tr.GetCurrent(ctx, 219000185)
	assert.False(t, ok)
}

func TestIngest_RecoversFromPanic(t *testing.T) {
	tr, _, _ := newTestTracker(t, Options{})

	var calls atomic.Int32
	tr.OnUpdate(func(*model.VesselTarget) {
		if calls.Add(1) == 1 {
			panic("subscriber failed")
		}
	})
	tr.Ingest(position(219000001, model.TypeA, t0, 55, 12, 1))
	tr.Ingest(position(219000002, model.TypeA, t0, 55, 12, 1))

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestGetMaxSpeed_Fallback(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t, Options{RegisterMaxSpeed: true})
	const mmsi = 219000185

	r := position(mmsi, model.TypeA, t0, 55, 12, 0)
	tr.Handle(ctx, r)
	tr.Handle(ctx, model.Report{MMSI: mmsi, TargetType: model.TypeA, Timestamp: t0.Add(time.Second),
		Static: &model.StaticReport{ShipType: model.Ptr(70)}})

	ms, ok := tr.GetMaxSpeed(ctx, mmsi, false)
	require.True(t, ok)
	assert.Zero(t, ms.MaxSpeed)

	ms, ok = tr.GetMaxSpeed(ctx, mmsi, true)
	require.True(t, ok)
	assert.Equal(t, 15.1, ms.MaxSpeed)

	_, ok = tr.GetMaxSpeed(ctx, 265000001, true)
	assert.False(t, ok)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "stale", Stale.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
