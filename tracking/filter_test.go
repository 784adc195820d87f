package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/aistrack/model"
	"github.com/theoremus-urban-solutions/aistrack/utils"
)

func target(mmsi int, source string, last time.Time, lat, lon *float64) *model.VesselTarget {
	v := &model.VesselTarget{Lat: lat, Lon: lon}
	v.MMSI = mmsi
	v.TargetType = model.TypeA
	v.SourceType = source
	v.LastReport = last
	return v
}

func TestFilter_Match(t *testing.T) {
	copenhagen := utils.NewCircle(55.68, 12.57, 20000)
	kattegat := utils.NewBoundingBox(56, 10.5, 57.5, 12.5)

	tests := []struct {
		name   string
		filter *Filter
		target *model.VesselTarget
		want   bool
	}{
		{"nil filter", nil, target(219000001, model.SourceLive, t0.Add(-48*time.Hour), nil, nil), true},
		{"zero filter", &Filter{}, target(219000001, model.SourceLive, t0, nil, nil), true},
		{"live within ttl", &Filter{TTLLive: time.Hour}, target(219000001, model.SourceLive, t0.Add(-time.Minute), nil, nil), true},
		{"live beyond ttl", &Filter{TTLLive: time.Hour}, target(219000001, model.SourceLive, t0.Add(-2*time.Hour), nil, nil), false},
		{"sat uses sat ttl", &Filter{TTLLive: time.Hour, TTLSat: 12 * time.Hour}, target(219000001, model.SourceSat, t0.Add(-2*time.Hour), nil, nil), true},
		{"sat beyond sat ttl", &Filter{TTLSat: time.Hour}, target(219000001, model.SourceSat, t0.Add(-2*time.Hour), nil, nil), false},
		{"mmsi listed", &Filter{MMSI: map[int]struct{}{219000001: {}}}, target(219000001, model.SourceLive, t0, nil, nil), true},
		{"mmsi not listed", &Filter{MMSI: map[int]struct{}{219000002: {}}}, target(219000001, model.SourceLive, t0, nil, nil), false},
		{"inside circle", &Filter{Areas: []utils.Area{copenhagen}}, target(219000001, model.SourceLive, t0, model.Ptr(55.7), model.Ptr(12.6)), true},
		{"inside second area", &Filter{Areas: []utils.Area{copenhagen, kattegat}}, target(219000001, model.SourceLive, t0, model.Ptr(56.5), model.Ptr(11.5)), true},
		{"outside areas", &Filter{Areas: []utils.Area{copenhagen, kattegat}}, target(219000001, model.SourceLive, t0, model.Ptr(54.0), model.Ptr(10.0)), false},
		{"no position with area", &Filter{Areas: []utils.Area{kattegat}}, target(219000001, model.SourceLive, t0, nil, nil), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Match(tc.target, t0))
		})
	}
}

func TestParseMMSIList(t *testing.T) {
	set, err := ParseMMSIList("219000001, 219000002,,265000001")
	require.NoError(t, err)
	assert.Len(t, set, 3)
	assert.Contains(t, set, 265000001)

	_, err = ParseMMSIList("219000001,abc")
	assert.Error(t, err)
}

func TestListCurrent_FiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	tr, _, clk := newTestTracker(t, Options{})
	clk.Set(t0)

	tr.Handle(ctx, position(265000001, model.TypeA, t0, 57.7, 11.9, 5))
	tr.Handle(ctx, position(219000185, model.TypeA, t0.Add(-30*time.Minute), 55.7, 12.6, 5))
	tr.Handle(ctx, position(211000001, model.TypeB, t0.Add(-3*time.Hour), 54.3, 10.1, 5))

	all := tr.ListCurrent(ctx, nil)
	require.Len(t, all, 3)
	assert.Equal(t, []int{211000001, 219000185, 265000001}, []int{all[0].MMSI, all[1].MMSI, all[2].MMSI})

	f := &Filter{TTLLive: time.Hour}
	assert.Len(t, tr.ListCurrent(ctx, f), 2)
	assert.Equal(t, 2, tr.CountCurrent(ctx, f))

	f.Areas = []utils.Area{utils.NewCircle(55.68, 12.57, 20000)}
	got := tr.ListCurrent(ctx, f)
	require.Len(t, got, 1)
	assert.Equal(t, 219000185, got[0].MMSI)
}
