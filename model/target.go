package model

import (
	"time"
)

// MMSI bounds for vessel identifiers.
const (
	MinMMSI = 100000000
	MaxMMSI = 999999999
)

// TargetType is the AIS target classification.
type TargetType string

const (
	TypeUnknown     TargetType = ""
	TypeA           TargetType = "A"
	TypeB           TargetType = "B"
	TypeBaseStation TargetType = "BS"
	TypeAtoN        TargetType = "ATON"
	TypeSART        TargetType = "SART"
)

// Known reports whether t is one of the recognised classifications.
func (t TargetType) Known() bool {
	switch t {
	case TypeA, TypeB, TypeBaseStation, TypeAtoN, TypeSART:
		return true
	}
	return false
}

// IsVessel reports whether t is a class A or B vessel.
func (t TargetType) IsVessel() bool { return t == TypeA || t == TypeB }

// Source types.
const (
	SourceLive = "LIVE"
	SourceSat  = "SAT"
)

// ValidMMSI reports whether mmsi is inside the 9-digit identifier range.
func ValidMMSI(mmsi int) bool { return mmsi >= MinMMSI && mmsi <= MaxMMSI }

// Target is the metadata common to every AIS target.
type Target struct {
	TargetType    TargetType `json:"targetType"`
	MMSI          int        `json:"mmsi"`
	Country       string     `json:"country,omitempty"`
	LastReport    time.Time  `json:"lastReport"`
	SourceType    string     `json:"sourceType,omitempty"`
	SourceCountry string     `json:"sourceCountry,omitempty"`
	SourceRegion  string     `json:"sourceRegion,omitempty"`
}

// VesselTarget is an immutable snapshot of a class A or B vessel. Every field
// is optional; nil means unknown.
type VesselTarget struct {
	Target

	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Cog       *float64 `json:"cog,omitempty"`
	Sog       *float64 `json:"sog,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Rot       *float64 `json:"rot,omitempty"`
	NavStatus *string  `json:"navStatus,omitempty"`
	Moored    *bool    `json:"moored,omitempty"`

	Length      *int       `json:"length,omitempty"`
	Width       *int       `json:"width,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Callsign    *string    `json:"callsign,omitempty"`
	IMONo       *int       `json:"imoNo,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	Draught     *float64   `json:"draught,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`
	VesselType  *string    `json:"vesselType,omitempty"`
	VesselCargo *string    `json:"vesselCargo,omitempty"`
	ShipType    *int       `json:"shipType,omitempty"`

	LastPosReport    *time.Time `json:"lastPosReport,omitempty"`
	LastStaticReport *time.Time `json:"lastStaticReport,omitempty"`
}

// HasPosition reports whether the snapshot was built from, or merged with, a
// position report.
func (t *VesselTarget) HasPosition() bool { return t.LastPosReport != nil }

// HasStaticData reports whether the snapshot carries static voyage data.
func (t *VesselTarget) HasStaticData() bool { return t.LastStaticReport != nil }

// ValidPos reports whether lat/lon are present and inside WGS84 bounds. AIS
// encodes "not available" as 91/181 which fails this check.
func (t *VesselTarget) ValidPos() bool {
	if t.Lat == nil || t.Lon == nil {
		return false
	}
	return *t.Lat >= -90 && *t.Lat <= 90 && *t.Lon >= -180 && *t.Lon <= 180
}

// PastTrackPosition is a single history sample. Samples are ordered and
// compared by Time alone.
type PastTrackPosition struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Cog  float64 `json:"cog"`
	Sog  float64 `json:"sog"`
	Time int64   `json:"time"`
}

// PastTrackPositionOf builds a history sample from t. ok is false when t has
// no valid position.
func PastTrackPositionOf(t *VesselTarget) (PastTrackPosition, bool) {
	if !t.ValidPos() || t.LastPosReport == nil {
		return PastTrackPosition{}, false
	}
	p := PastTrackPosition{
		Lat:  *t.Lat,
		Lon:  *t.Lon,
		Time: t.LastPosReport.UnixMilli(),
	}
	if t.Cog != nil {
		p.Cog = *t.Cog
	}
	if t.Sog != nil {
		p.Sog = *t.Sog
	}
	return p, true
}

// MaxSpeed is the read view of a vessel's rolling maximum speed in knots.
type MaxSpeed struct {
	MMSI     int     `json:"mmsi"`
	MaxSpeed float64 `json:"maxSpeed"`
}
