package gtfsrt

import (
	"strconv"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/theoremus-urban-solutions/aistrack/model"
)

// knotsPerMetrePerSecond converts GTFS-RT speed (m/s) to knots.
const knotsPerMetrePerSecond = 1.943844

// Reports converts the vehicle positions in fm into class A position
// reports. Entries without a position or without an MMSI vehicle id are
// skipped. The timestamp is taken from the vehicle, then the feed header,
// then now.
func Reports(fm *gtfsrtpb.FeedMessage, now time.Time) []model.Report {
	fallback := now
	if h := fm.GetHeader(); h != nil && h.Timestamp != nil {
		fallback = time.Unix(int64(h.GetTimestamp()), 0).UTC()
	}

	var out []model.Report
	for _, e := range fm.GetEntity() {
		if e.GetIsDeleted() {
			continue
		}
		vp := e.GetVehicle()
		if vp == nil || vp.GetPosition() == nil {
			continue
		}
		mmsi, ok := mmsiOf(vp)
		if !ok {
			continue
		}
		p := vp.GetPosition()
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		ts := fallback
		if vp.Timestamp != nil {
			ts = time.Unix(int64(vp.GetTimestamp()), 0).UTC()
		}
		pos := &model.PositionReport{
			Lat: model.Ptr(float64(p.GetLatitude())),
			Lon: model.Ptr(float64(p.GetLongitude())),
		}
		if p.Bearing != nil {
			pos.Cog = model.Ptr(float64(p.GetBearing()))
		}
		if p.Speed != nil {
			pos.Sog = model.Ptr(float64(p.GetSpeed()) * knotsPerMetrePerSecond)
		}
		out = append(out, model.Report{
			MMSI:       mmsi,
			TargetType: model.TypeA,
			Timestamp:  ts,
			SourceType: model.SourceLive,
			Position:   pos,
		})
	}
	return out
}

func mmsiOf(vp *gtfsrtpb.VehiclePosition) (int, bool) {
	id := vp.GetVehicle().GetId()
	if len(id) != 9 {
		return 0, false
	}
	mmsi, err := strconv.Atoi(id)
	if err != nil || !model.ValidMMSI(mmsi) {
		return 0, false
	}
	return mmsi, true
}
