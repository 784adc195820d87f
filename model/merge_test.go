package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func posReport(mmsi int, tt TargetType, ts time.Time, lat, lon, sog float64) Report {
	return Report{
		MMSI:       mmsi,
		TargetType: tt,
		Timestamp:  ts,
		Position: &PositionReport{
			Lat: Ptr(lat),
			Lon: Ptr(lon),
			Sog: Ptr(sog),
			Cog: Ptr(90.0),
		},
	}
}

func staticReport(mmsi int, tt TargetType, ts time.Time, name, callsign string) Report {
	s := &StaticReport{}
	if name != "" {
		s.Name = Ptr(name)
	}
	if callsign != "" {
		s.Callsign = Ptr(callsign)
	}
	return Report{MMSI: mmsi, TargetType: tt, Timestamp: ts, Static: s}
}

func TestMerge_PositionUpdateTakesMovementWholesale(t *testing.T) {
	prev := NewVesselTarget(posReport(219000185, TypeA, t0, 55.0, 12.0, 10.0))
	prev.Heading = Ptr(45.0)

	next := NewVesselTarget(posReport(219000185, TypeA, t0.Add(time.Minute), 55.1, 12.1, 11.0))
	merged := prev.Merge(next)

	require.NotNil(t, merged.Lat)
	assert.Equal(t, 55.1, *merged.Lat)
	assert.Equal(t, 11.0, *merged.Sog)
	assert.Nil(t, merged.Heading, "heading is not blended from the previous snapshot")
	assert.Equal(t, t0.Add(time.Minute), *merged.LastPosReport)
	assert.Equal(t, 219000185, merged.MMSI)
	assert.Equal(t, "DK", merged.Country)
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	prev := NewVesselTarget(posReport(219000185, TypeA, t0, 55.0, 12.0, 10.0))
	next := NewVesselTarget(staticReport(219000185, TypeA, t0.Add(time.Minute), "EVER GIVEN", "H3RC"))

	_ = prev.Merge(next)

	assert.Equal(t, 55.0, *prev.Lat)
	assert.Nil(t, prev.Name)
	assert.Nil(t, next.Lat)
}

func TestMerge_StaticOnly(t *testing.T) {
	tests := []struct {
		name         string
		targetType   TargetType
		wantCallsign *string
	}{
		{name: "class A clears absent fields", targetType: TypeA, wantCallsign: nil},
		{name: "class B keeps absent fields", targetType: TypeB, wantCallsign: Ptr("OXYZ2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := NewVesselTarget(staticReport(219000185, tt.targetType, t0, "ALPHA", "OXYZ2"))
			next := NewVesselTarget(staticReport(219000185, tt.targetType, t0.Add(time.Minute), "BRAVO", ""))

			merged := prev.Merge(next)

			require.NotNil(t, merged.Name)
			assert.Equal(t, "BRAVO", *merged.Name)
			assert.Equal(t, tt.wantCallsign, merged.Callsign)
			assert.Equal(t, t0.Add(time.Minute), *merged.LastStaticReport)
		})
	}
}

func TestMerge_StaticOnlyDropsMovement(t *testing.T) {
	prev := NewVesselTarget(posReport(219000185, TypeA, t0, 55.0, 12.0, 10.0))
	next := NewVesselTarget(staticReport(219000185, TypeA, t0.Add(time.Minute), "ALPHA", "OXYZ2"))

	merged := prev.Merge(next)

	assert.Nil(t, merged.Lat)
	assert.Nil(t, merged.Sog)
	assert.Equal(t, t0, *merged.LastPosReport, "lastPosReport falls back to the previous value")
	assert.Equal(t, "ALPHA", *merged.Name)
}

func TestMergeRetaining_KeepsOtherGroup(t *testing.T) {
	withPos := NewVesselTarget(posReport(219000185, TypeA, t0, 55.0, 12.0, 10.0))
	stat := NewVesselTarget(staticReport(219000185, TypeA, t0.Add(time.Minute), "ALPHA", "OXYZ2"))

	merged := withPos.MergeRetaining(stat)
	assert.Equal(t, 55.0, *merged.Lat)
	assert.Equal(t, "ALPHA", *merged.Name)

	again := merged.MergeRetaining(NewVesselTarget(posReport(219000185, TypeA, t0.Add(2*time.Minute), 55.2, 12.2, 9.0)))
	assert.Equal(t, 55.2, *again.Lat)
	assert.Equal(t, "ALPHA", *again.Name)
}

func TestMerge_MetadataFromNewest(t *testing.T) {
	prevReport := posReport(219000185, TypeA, t0, 55.0, 12.0, 10.0)
	prevReport.SourceType = SourceSat
	prevReport.SourceCountry = "DK"
	prev := NewVesselTarget(prevReport)

	next := NewVesselTarget(posReport(219000185, TypeA, t0.Add(time.Minute), 55.1, 12.1, 11.0))
	merged := prev.Merge(next)

	assert.Equal(t, SourceLive, merged.SourceType)
	assert.Empty(t, merged.SourceCountry)
	assert.Equal(t, t0.Add(time.Minute), merged.LastReport)
	assert.Nil(t, merged.LastStaticReport)
}
