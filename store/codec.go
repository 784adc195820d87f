package store

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/theoremus-urban-solutions/aistrack/model"
)

// Records are stored in protobuf wire format with hand-assigned field
// numbers. Absent optional fields are omitted so nil survives a round trip.
// Timestamps are kept at millisecond precision.

var errTruncated = errors.New("truncated record")

type encoder struct{ b []byte }

func (e *encoder) str(num protowire.Number, s string) {
	if s == "" {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, s)
}

func (e *encoder) strPtr(num protowire.Number, s *string) {
	if s == nil {
		return
	}
	// empty strings are legal values, so they are written explicitly
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, *s)
}

func (e *encoder) sint(num protowire.Number, v int64) {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, protowire.EncodeZigZag(v))
}

func (e *encoder) intPtr(num protowire.Number, v *int) {
	if v != nil {
		e.sint(num, int64(*v))
	}
}

func (e *encoder) double(num protowire.Number, v float64) {
	e.b = protowire.AppendTag(e.b, num, protowire.Fixed64Type)
	e.b = protowire.AppendFixed64(e.b, math.Float64bits(v))
}

func (e *encoder) doublePtr(num protowire.Number, v *float64) {
	if v != nil {
		e.double(num, *v)
	}
}

func (e *encoder) boolPtr(num protowire.Number, v *bool) {
	if v == nil {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, protowire.EncodeBool(*v))
}

func (e *encoder) timePtr(num protowire.Number, t *time.Time) {
	if t != nil {
		e.sint(num, t.UnixMilli())
	}
}

func (e *encoder) message(num protowire.Number, b []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, b)
}

// field is one decoded wire field.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	u     uint64
	bytes []byte
}

func (f field) sint() int64 { return protowire.DecodeZigZag(f.u) }

func (f field) double() float64 { return math.Float64frombits(f.u) }

func (f field) str() string { return string(f.bytes) }

func (f field) time() time.Time { return time.UnixMilli(f.sint()).UTC() }

func (f field) intp() *int {
	v := int(f.sint())
	return &v
}

func (f field) doublep() *float64 {
	v := f.double()
	return &v
}

func (f field) strp() *string {
	v := f.str()
	return &v
}

func (f field) timep() *time.Time {
	v := f.time()
	return &v
}

// eachField walks the top-level fields of b. Unknown wire types are skipped.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.u, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// VesselTarget field numbers.
const (
	vtTargetType protowire.Number = iota + 1
	vtMMSI
	vtCountry
	vtLastReport
	vtSourceType
	vtSourceCountry
	vtSourceRegion
	vtLat
	vtLon
	vtCog
	vtSog
	vtHeading
	vtRot
	vtNavStatus
	vtMoored
	vtLength
	vtWidth
	vtName
	vtCallsign
	vtIMONo
	vtDestination
	vtDraught
	vtETA
	vtVesselType
	vtVesselCargo
	vtShipType
	vtLastPosReport
	vtLastStaticReport
)

func encodeTarget(t *model.VesselTarget) []byte {
	e := &encoder{b: make([]byte, 0, 128)}
	e.str(vtTargetType, string(t.TargetType))
	e.sint(vtMMSI, int64(t.MMSI))
	e.str(vtCountry, t.Country)
	e.sint(vtLastReport, t.LastReport.UnixMilli())
	e.str(vtSourceType, t.SourceType)
	e.str(vtSourceCountry, t.SourceCountry)
	e.str(vtSourceRegion, t.SourceRegion)
	e.doublePtr(vtLat, t.Lat)
	e.doublePtr(vtLon, t.Lon)
	e.doublePtr(vtCog, t.Cog)
	e.doublePtr(vtSog, t.Sog)
	e.doublePtr(vtHeading, t.Heading)
	e.doublePtr(vtRot, t.Rot)
	e.strPtr(vtNavStatus, t.NavStatus)
	e.boolPtr(vtMoored, t.Moored)
	e.intPtr(vtLength, t.Length)
	e.intPtr(vtWidth, t.Width)
	e.strPtr(vtName, t.Name)
	e.strPtr(vtCallsign, t.Callsign)
	e.intPtr(vtIMONo, t.IMONo)
	e.strPtr(vtDestination, t.Destination)
	e.doublePtr(vtDraught, t.Draught)
	e.timePtr(vtETA, t.ETA)
	e.strPtr(vtVesselType, t.VesselType)
	e.strPtr(vtVesselCargo, t.VesselCargo)
	e.intPtr(vtShipType, t.ShipType)
	e.timePtr(vtLastPosReport, t.LastPosReport)
	e.timePtr(vtLastStaticReport, t.LastStaticReport)
	return e.b
}

func decodeTarget(b []byte) (*model.VesselTarget, error) {
	t := &model.VesselTarget{}
	seenMMSI := false
	err := eachField(b, func(f field) error {
		switch f.num {
		case vtTargetType:
			t.TargetType = model.TargetType(f.str())
		case vtMMSI:
			t.MMSI = int(f.sint())
			seenMMSI = true
		case vtCountry:
			t.Country = f.str()
		case vtLastReport:
			t.LastReport = f.time()
		case vtSourceType:
			t.SourceType = f.str()
		case vtSourceCountry:
			t.SourceCountry = f.str()
		case vtSourceRegion:
			t.SourceRegion = f.str()
		case vtLat:
			t.Lat = f.doublep()
		case vtLon:
			t.Lon = f.doublep()
		case vtCog:
			t.Cog = f.doublep()
		case vtSog:
			t.Sog = f.doublep()
		case vtHeading:
			t.Heading = f.doublep()
		case vtRot:
			t.Rot = f.doublep()
		case vtNavStatus:
			t.NavStatus = f.strp()
		case vtMoored:
			v := protowire.DecodeBool(f.u)
			t.Moored = &v
		case vtLength:
			t.Length = f.intp()
		case vtWidth:
			t.Width = f.intp()
		case vtName:
			t.Name = f.strp()
		case vtCallsign:
			t.Callsign = f.strp()
		case vtIMONo:
			t.IMONo = f.intp()
		case vtDestination:
			t.Destination = f.strp()
		case vtDraught:
			t.Draught = f.doublep()
		case vtETA:
			t.ETA = f.timep()
		case vtVesselType:
			t.VesselType = f.strp()
		case vtVesselCargo:
			t.VesselCargo = f.strp()
		case vtShipType:
			t.ShipType = f.intp()
		case vtLastPosReport:
			t.LastPosReport = f.timep()
		case vtLastStaticReport:
			t.LastStaticReport = f.timep()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode target: %w", err)
	}
	if !seenMMSI {
		return nil, fmt.Errorf("decode target: %w", errTruncated)
	}
	return t, nil
}

// PastTrack: repeated field 1, one embedded message per position.
const (
	ptPosition protowire.Number = 1

	posLat  protowire.Number = 1
	posLon  protowire.Number = 2
	posCog  protowire.Number = 3
	posSog  protowire.Number = 4
	posTime protowire.Number = 5
)

func encodePastTrack(p *PastTrack) []byte {
	points := p.Points()
	e := &encoder{b: make([]byte, 0, len(points)*48)}
	pe := &encoder{}
	for _, pos := range points {
		pe.b = pe.b[:0]
		pe.double(posLat, pos.Lat)
		pe.double(posLon, pos.Lon)
		pe.double(posCog, pos.Cog)
		pe.double(posSog, pos.Sog)
		pe.sint(posTime, pos.Time)
		e.message(ptPosition, pe.b)
	}
	return e.b
}

func decodePastTrack(b []byte) (*PastTrack, error) {
	p := NewPastTrack()
	err := eachField(b, func(f field) error {
		if f.num != ptPosition || f.typ != protowire.BytesType {
			return nil
		}
		var pos model.PastTrackPosition
		err := eachField(f.bytes, func(pf field) error {
			switch pf.num {
			case posLat:
				pos.Lat = pf.double()
			case posLon:
				pos.Lon = pf.double()
			case posCog:
				pos.Cog = pf.double()
			case posSog:
				pos.Sog = pf.double()
			case posTime:
				pos.Time = pf.sint()
			}
			return nil
		})
		if err != nil {
			return err
		}
		p.Add(pos)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode past track: %w", err)
	}
	return p, nil
}

// MaxSpeedRing: packed doubles in field 1.
const (
	ringBuckets    protowire.Number = 1
	ringLastUpdate protowire.Number = 2
	ringDay        protowire.Number = 3
)

func encodeRing(r *MaxSpeedRing) []byte {
	c := r.Clone()
	packed := make([]byte, 0, len(c.buckets)*8)
	for _, v := range c.buckets {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	e := &encoder{b: make([]byte, 0, len(packed)+24)}
	e.message(ringBuckets, packed)
	e.sint(ringLastUpdate, c.lastUpdate)
	e.sint(ringDay, c.day)
	return e.b
}

func decodeRing(b []byte) (*MaxSpeedRing, error) {
	r := &MaxSpeedRing{day: noDay}
	err := eachField(b, func(f field) error {
		switch f.num {
		case ringBuckets:
			packed := f.bytes
			for len(packed) > 0 {
				v, n := protowire.ConsumeFixed64(packed)
				if n < 0 {
					return protowire.ParseError(n)
				}
				r.buckets = append(r.buckets, math.Float64frombits(v))
				packed = packed[n:]
			}
		case ringLastUpdate:
			r.lastUpdate = f.sint()
		case ringDay:
			r.day = f.sint()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode max speed ring: %w", err)
	}
	if len(r.buckets) == 0 {
		return nil, fmt.Errorf("decode max speed ring: %w", errTruncated)
	}
	return r, nil
}
