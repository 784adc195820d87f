package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVesselTarget_Position(t *testing.T) {
	r := posReport(219000185, TypeA, t0, 55.0, 12.0, 10.0)
	r.Position.NavStatus = Ptr(5)

	v := NewVesselTarget(r)

	assert.True(t, v.HasPosition())
	assert.False(t, v.HasStaticData())
	assert.True(t, v.ValidPos())
	require.NotNil(t, v.Moored)
	assert.True(t, *v.Moored)
	assert.Equal(t, "Moored", *v.NavStatus)
	assert.Equal(t, SourceLive, v.SourceType)
	assert.Equal(t, "DK", v.Country)
}

func TestNewVesselTarget_Static(t *testing.T) {
	r := Report{
		MMSI:       257000123,
		TargetType: TypeA,
		Timestamp:  t0,
		Static: &StaticReport{
			Name:         Ptr("NORDLYS@@@@@@"),
			Callsign:     Ptr("  LHCW "),
			Destination:  Ptr("@@@@"),
			IMO:          Ptr(0),
			Draught:      Ptr(0.0),
			DimBow:       Ptr(100),
			DimStern:     Ptr(21),
			DimPort:      Ptr(10),
			DimStarboard: Ptr(11),
		},
	}

	v := NewVesselTarget(r)

	assert.Equal(t, "NORDLYS", *v.Name)
	assert.Equal(t, "LHCW", *v.Callsign)
	assert.Nil(t, v.Destination)
	assert.Nil(t, v.IMONo)
	assert.Nil(t, v.Draught)
	assert.Equal(t, 121, *v.Length)
	assert.Equal(t, 21, *v.Width)
	assert.Equal(t, "NO", v.Country)
	assert.False(t, v.HasPosition())
}

func TestValidPos(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon *float64
		want     bool
	}{
		{"missing", nil, nil, false},
		{"not available", Ptr(91.0), Ptr(181.0), false},
		{"valid", Ptr(55.0), Ptr(12.0), true},
		{"edge", Ptr(-90.0), Ptr(180.0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &VesselTarget{Lat: tt.lat, Lon: tt.lon}
			assert.Equal(t, tt.want, v.ValidPos())
		})
	}
}

func TestReportUsable(t *testing.T) {
	var nilReport *Report
	assert.False(t, nilReport.Usable())
	assert.False(t, (&Report{MMSI: 219000185}).Usable())
	assert.True(t, (&Report{Static: &StaticReport{}}).Usable())
}
