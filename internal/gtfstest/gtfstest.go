// Package gtfstest builds small static and realtime GTFS feeds for tests.
package gtfstest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	p "github.com/jamespfennell/gtfs/proto"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

// Metro is a one-route network in UTC. 2024-07-03 is a Wednesday and
// WKDY is removed on 2024-07-04.
//
//	T1 (WKDY)  S1 08:00:00  S2 08:10:00-08:10:30  S3 08:20:00
//	T2 (WKDY)  S1 08:07:00  S2 08:17:00
//	N1 (DAILY) S1 24:50:00  S2 25:10:00
var Metro = map[string]string{
	"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
A,Metro,https://metro.example,UTC
`,
	"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
R1,A,1,Crosstown,3
`,
	"stops.txt": `stop_id,stop_name,stop_lat,stop_lon
S1,Stop S1,47.60,-122.30
S2,Stop S2,47.61,-122.31
S3,Stop S3,47.62,-122.32
S4,Stop S4,47.63,-122.33
`,
	"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WKDY,1,1,1,1,1,0,0,20240101,20241231
DAILY,1,1,1,1,1,1,1,20240101,20241231
`,
	"calendar_dates.txt": `service_id,date,exception_type
WKDY,20240704,2
`,
	"trips.txt": `route_id,service_id,trip_id,trip_headsign,direction_id
R1,WKDY,T1,Downtown,0
R1,WKDY,T2,Downtown,0
R1,DAILY,N1,Night Owl,0
`,
	"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
T1,08:00:00,08:00:00,S1,1
T1,08:10:00,08:10:30,S2,2
T1,08:20:00,08:20:00,S3,3
T2,08:07:00,08:07:00,S1,1
T2,08:17:00,08:17:00,S2,2
N1,24:50:00,24:50:00,S1,1
N1,25:10:00,25:10:00,S2,2
`,
}

// Zip packs files into a GTFS archive. Entries are written in name order
// so equal inputs give equal bytes.
func Zip(t testing.TB, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteZip writes the archive into a temporary directory and returns its
// path.
func WriteZip(t testing.TB, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	require.NoError(t, os.WriteFile(path, Zip(t, files), 0o600))
	return path
}

// Delay is one stop-level delay in a trip update.
type Delay struct {
	Seq   uint32
	Delay time.Duration
}

// TripUpdateFeed encodes a FeedMessage with one scheduled trip update.
func TripUpdateFeed(t testing.TB, header time.Time, tripID, startDate string, delays ...Delay) []byte {
	t.Helper()
	rel := p.TripDescriptor_SCHEDULED
	tu := &p.TripUpdate{
		Trip: &p.TripDescriptor{
			TripId:               proto.String(tripID),
			StartDate:            proto.String(startDate),
			ScheduleRelationship: &rel,
		},
	}
	for _, d := range delays {
		tu.StopTimeUpdate = append(tu.StopTimeUpdate, &p.TripUpdate_StopTimeUpdate{
			StopSequence: proto.Uint32(d.Seq),
			Arrival:      &p.TripUpdate_StopTimeEvent{Delay: proto.Int32(int32(d.Delay / time.Second))},
		})
	}
	return Feed(t, header, &p.FeedEntity{Id: proto.String("tu-" + tripID), TripUpdate: tu})
}

// VehicleFeed encodes a FeedMessage with one vehicle serving tripID.
func VehicleFeed(t testing.TB, header time.Time, vehicleID, tripID, startDate string) []byte {
	t.Helper()
	return Feed(t, header, &p.FeedEntity{
		Id: proto.String("vp-" + vehicleID),
		Vehicle: &p.VehiclePosition{
			Trip:      &p.TripDescriptor{TripId: proto.String(tripID), StartDate: proto.String(startDate)},
			Vehicle:   &p.VehicleDescriptor{Id: proto.String(vehicleID)},
			Position:  &p.Position{Latitude: proto.Float32(47.6), Longitude: proto.Float32(-122.3)},
			Timestamp: proto.Uint64(uint64(header.Unix())),
		},
	})
}

// Feed wraps entities in a GTFS-Realtime 2.0 message.
func Feed(t testing.TB, header time.Time, entities ...*p.FeedEntity) []byte {
	t.Helper()
	msg := &p.FeedMessage{
		Header: &p.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(header.Unix())),
		},
		Entity: entities,
	}
	b, err := proto.Marshal(msg)
	require.NoError(t, err)
	return b
}
