package model

import (
	"strings"
	"time"
)

// Report is a decoded AIS message as delivered by a transport. Position and
// Static are independent; a message may carry either, both or neither.
type Report struct {
	MMSI          int             `json:"mmsi"`
	TargetType    TargetType      `json:"targetType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceType    string          `json:"sourceType,omitempty"`
	SourceCountry string          `json:"sourceCountry,omitempty"`
	SourceRegion  string          `json:"sourceRegion,omitempty"`
	Position      *PositionReport `json:"position,omitempty"`
	Static        *StaticReport   `json:"static,omitempty"`
}

// PositionReport is the movement part of a report.
type PositionReport struct {
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Cog       *float64 `json:"cog,omitempty"`
	Sog       *float64 `json:"sog,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Rot       *float64 `json:"rot,omitempty"`
	NavStatus *int     `json:"navStatus,omitempty"`
}

// StaticReport is the static and voyage part of a report. Dimensions are the
// raw bow/stern/port/starboard offsets from the reference point.
type StaticReport struct {
	Name         *string    `json:"name,omitempty"`
	Callsign     *string    `json:"callsign,omitempty"`
	IMO          *int       `json:"imo,omitempty"`
	ShipType     *int       `json:"shipType,omitempty"`
	VesselType   *string    `json:"vesselType,omitempty"`
	VesselCargo  *string    `json:"vesselCargo,omitempty"`
	Destination  *string    `json:"destination,omitempty"`
	Draught      *float64   `json:"draught,omitempty"`
	ETA          *time.Time `json:"eta,omitempty"`
	DimBow       *int       `json:"dimBow,omitempty"`
	DimStern     *int       `json:"dimStern,omitempty"`
	DimPort      *int       `json:"dimPort,omitempty"`
	DimStarboard *int       `json:"dimStarboard,omitempty"`
}

// Usable reports whether r carries anything a snapshot can be built from.
func (r *Report) Usable() bool {
	return r != nil && (r.Position != nil || r.Static != nil)
}

var navStatusText = map[int]string{
	0:  "Under way using engine",
	1:  "At anchor",
	2:  "Not under command",
	3:  "Restricted manoeuvrability",
	4:  "Constrained by her draught",
	5:  "Moored",
	6:  "Aground",
	7:  "Engaged in fishing",
	8:  "Under way sailing",
	9:  "Reserved for HSC",
	10: "Reserved for WIG",
	11: "Power-driven vessel towing astern",
	12: "Power-driven vessel pushing ahead",
	14: "AIS-SART active",
	15: "Undefined",
}

// NavStatusText returns the display text for an AIS navigational status code.
func NavStatusText(code int) string {
	if s, ok := navStatusText[code]; ok {
		return s
	}
	return "Undefined"
}

// NewVesselTarget builds a snapshot from a single report. The report
// timestamp becomes lastReport and, depending on the payload, lastPosReport
// and lastStaticReport.
func NewVesselTarget(r Report) *VesselTarget {
	ts := r.Timestamp
	t := &VesselTarget{
		Target: Target{
			TargetType:    r.TargetType,
			MMSI:          r.MMSI,
			Country:       CountryForMMSI(r.MMSI),
			LastReport:    ts,
			SourceType:    r.SourceType,
			SourceCountry: r.SourceCountry,
			SourceRegion:  r.SourceRegion,
		},
	}
	if t.SourceType == "" {
		t.SourceType = SourceLive
	}

	if p := r.Position; p != nil {
		t.LastPosReport = &ts
		t.Sog = copyPtr(p.Sog)
		t.Cog = copyPtr(p.Cog)
		t.Heading = copyPtr(p.Heading)
		t.Rot = copyPtr(p.Rot)
		if p.Lat != nil && p.Lon != nil {
			t.Lat = copyPtr(p.Lat)
			t.Lon = copyPtr(p.Lon)
		}
		if p.NavStatus != nil {
			s := NavStatusText(*p.NavStatus)
			moored := *p.NavStatus == 1 || *p.NavStatus == 5
			t.NavStatus = &s
			t.Moored = &moored
		}
	}

	if s := r.Static; s != nil {
		t.LastStaticReport = &ts
		t.Name = trimText(s.Name)
		t.Callsign = trimText(s.Callsign)
		t.Destination = trimText(s.Destination)
		t.VesselType = copyPtr(s.VesselType)
		t.VesselCargo = copyPtr(s.VesselCargo)
		t.ShipType = copyPtr(s.ShipType)
		t.ETA = copyPtr(s.ETA)
		if s.DimBow != nil && s.DimStern != nil {
			l := *s.DimBow + *s.DimStern
			t.Length = &l
		}
		if s.DimPort != nil && s.DimStarboard != nil {
			w := *s.DimPort + *s.DimStarboard
			t.Width = &w
		}
		if s.Draught != nil && *s.Draught != 0 {
			t.Draught = copyPtr(s.Draught)
		}
		if s.IMO != nil && *s.IMO > 0 {
			t.IMONo = copyPtr(s.IMO)
		}
	}
	return t
}

// trimText strips AIS '@' padding and surrounding spaces. Empty text is
// treated as absent.
func trimText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(strings.TrimRight(*s, "@"))
	if i := strings.IndexByte(v, '@'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	if v == "" {
		return nil
	}
	return &v
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
