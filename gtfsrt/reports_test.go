package gtfsrt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/aistrack/model"
)

func vehicle(id, vehicleID string, lat, lon float32, ts uint64) *gtfsrtpb.FeedEntity {
	vp := &gtfsrtpb.VehiclePosition{
		Vehicle:  &gtfsrtpb.VehicleDescriptor{Id: proto.String(vehicleID)},
		Position: &gtfsrtpb.Position{Latitude: proto.Float32(lat), Longitude: proto.Float32(lon)},
	}
	if ts > 0 {
		vp.Timestamp = proto.Uint64(ts)
	}
	return &gtfsrtpb.FeedEntity{Id: proto.String(id), Vehicle: vp}
}

func testFeed() *gtfsrtpb.FeedMessage {
	ferry := vehicle("1", "219000185", 55.5, 11.25, 1714564800)
	ferry.Vehicle.Position.Bearing = proto.Float32(270)
	ferry.Vehicle.Position.Speed = proto.Float32(5)

	return &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1714564900),
		},
		Entity: []*gtfsrtpb.FeedEntity{
			ferry,
			vehicle("2", "219000186", 56, 12, 0),
			vehicle("3", "bus-42", 55, 12, 1714564800),
			vehicle("4", "12345678", 55, 12, 1714564800),
			{Id: proto.String("5"), Vehicle: &gtfsrtpb.VehiclePosition{
				Vehicle: &gtfsrtpb.VehicleDescriptor{Id: proto.String("219000187")},
			}},
			{Id: proto.String("6"), IsDeleted: proto.Bool(true), Vehicle: vehicle("6", "219000188", 55, 12, 0).Vehicle},
		},
	}
}

func TestReports(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	reports := Reports(testFeed(), now)
	require.Len(t, reports, 2)

	r := reports[0]
	assert.Equal(t, 219000185, r.MMSI)
	assert.Equal(t, model.TypeA, r.TargetType)
	assert.Equal(t, model.SourceLive, r.SourceType)
	assert.Equal(t, time.Unix(1714564800, 0).UTC(), r.Timestamp)
	assert.InDelta(t, 55.5, *r.Position.Lat, 1e-6)
	assert.InDelta(t, 11.25, *r.Position.Lon, 1e-6)
	assert.InDelta(t, 270, *r.Position.Cog, 1e-6)
	assert.InDelta(t, 9.71922, *r.Position.Sog, 1e-4)
	assert.Nil(t, r.Static)

	// Without a vehicle timestamp the header timestamp applies.
	assert.Equal(t, 219000186, reports[1].MMSI)
	assert.Equal(t, time.Unix(1714564900, 0).UTC(), reports[1].Timestamp)
	assert.Nil(t, reports[1].Position.Sog)
}

func TestReports_NowWithoutHeaderTimestamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	fm := &gtfsrtpb.FeedMessage{Entity: []*gtfsrtpb.FeedEntity{vehicle("1", "219000185", 55, 12, 0)}}
	reports := Reports(fm, now)
	require.Len(t, reports, 1)
	assert.Equal(t, now, reports[0].Timestamp)
}

func TestClient_FetchFeed(t *testing.T) {
	body, err := proto.Marshal(testFeed())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vp.pb":
			w.Header().Set("Content-Type", "application/x-protobuf")
			_, _ = w.Write(body)
		case "/garbage":
			_, _ = w.Write([]byte{0xff, 0xff, 0xff})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	fm, err := c.FetchFeed(context.Background(), srv.URL+"/vp.pb")
	require.NoError(t, err)
	assert.Len(t, fm.GetEntity(), 6)

	_, err = c.FetchFeed(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = c.FetchFeed(context.Background(), srv.URL+"/garbage")
	assert.Error(t, err)
}
