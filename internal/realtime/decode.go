package realtime

import (
	"errors"
	"fmt"
	"time"

	gtfsrt "github.com/jamespfennell/gtfs/proto"
	"google.golang.org/protobuf/proto"
)

// ErrMalformedFeed is returned when a payload is not a decodable
// FeedMessage. Nothing from such a payload is applied.
var ErrMalformedFeed = errors.New("malformed GTFS-realtime feed")

// Decode parses a serialized FeedMessage. Entities flagged is_deleted are
// dropped; incremental deletion has no meaning for a snapshot.
func Decode(b []byte) (*Snapshot, error) {
	msg := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(b, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	if msg.GetHeader() == nil {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedFeed)
	}
	return FromMessage(msg), nil
}

// FromMessage converts an already parsed FeedMessage.
func FromMessage(msg *gtfsrt.FeedMessage) *Snapshot {
	snap := &Snapshot{Timestamp: unixTime(msg.GetHeader().GetTimestamp())}

	for _, ent := range msg.GetEntity() {
		if ent.GetIsDeleted() {
			continue
		}
		if tu := ent.GetTripUpdate(); tu != nil {
			snap.TripUpdates = append(snap.TripUpdates, tripUpdate(ent.GetId(), tu))
		}
		if vp := ent.GetVehicle(); vp != nil {
			snap.Vehicles = append(snap.Vehicles, vehiclePosition(ent.GetId(), vp))
		}
		if a := ent.GetAlert(); a != nil {
			snap.Alerts = append(snap.Alerts, alert(ent.GetId(), a))
		}
	}
	return snap
}

func tripDescriptor(td *gtfsrt.TripDescriptor) TripDescriptor {
	d := TripDescriptor{
		TripID:       td.GetTripId(),
		RouteID:      td.GetRouteId(),
		StartDate:    td.GetStartDate(),
		StartTime:    td.GetStartTime(),
		Relationship: TripRelationship(td.GetScheduleRelationship()),
	}
	if td.DirectionId != nil {
		dir := td.GetDirectionId()
		d.DirectionID = &dir
	}
	return d
}

func tripUpdate(entityID string, tu *gtfsrt.TripUpdate) TripUpdate {
	out := TripUpdate{
		EntityID:  entityID,
		Trip:      tripDescriptor(tu.GetTrip()),
		Timestamp: unixTime(tu.GetTimestamp()),
	}
	if v := tu.GetVehicle(); v != nil {
		out.VehicleID = v.GetId()
		out.VehicleLabel = v.GetLabel()
	}
	if tu.Delay != nil {
		d := time.Duration(tu.GetDelay()) * time.Second
		out.Delay = &d
	}

	for _, stu := range tu.GetStopTimeUpdate() {
		u := StopTimeUpdate{
			StopID:       stu.GetStopId(),
			Arrival:      stopTimeEvent(stu.GetArrival()),
			Departure:    stopTimeEvent(stu.GetDeparture()),
			Relationship: StopRelationship(stu.GetScheduleRelationship()),
		}
		if stu.StopSequence != nil {
			seq := stu.GetStopSequence()
			u.StopSequence = &seq
		}
		out.StopTimeUpdates = append(out.StopTimeUpdates, u)
	}
	return out
}

func stopTimeEvent(ev *gtfsrt.TripUpdate_StopTimeEvent) *StopTimeEvent {
	if ev == nil {
		return nil
	}
	out := &StopTimeEvent{}
	if ev.Time != nil && ev.GetTime() > 0 {
		out.Time = time.Unix(ev.GetTime(), 0).UTC()
	}
	if ev.Delay != nil {
		out.Delay = time.Duration(ev.GetDelay()) * time.Second
		out.HasDelay = true
	}
	if out.Empty() {
		return nil
	}
	return out
}

func vehiclePosition(entityID string, vp *gtfsrt.VehiclePosition) VehiclePosition {
	out := VehiclePosition{
		EntityID:  entityID,
		Timestamp: unixTime(vp.GetTimestamp()),
	}
	if v := vp.GetVehicle(); v != nil {
		out.VehicleID = v.GetId()
		out.Label = v.GetLabel()
	}
	if out.VehicleID == "" {
		out.VehicleID = entityID
	}
	if td := vp.GetTrip(); td != nil {
		d := tripDescriptor(td)
		out.Trip = &d
	}
	if pos := vp.GetPosition(); pos != nil {
		lat, lon := float64(pos.GetLatitude()), float64(pos.GetLongitude())
		out.Latitude, out.Longitude = &lat, &lon
		if pos.Bearing != nil {
			b := float64(pos.GetBearing())
			out.Bearing = &b
		}
		if pos.Speed != nil {
			s := float64(pos.GetSpeed())
			out.Speed = &s
		}
	}
	if vp.OccupancyStatus != nil {
		out.OccupancyStatus = vp.GetOccupancyStatus().String()
	}
	return out
}

func alert(entityID string, a *gtfsrt.Alert) Alert {
	out := Alert{
		ID:              entityID,
		Cause:           a.GetCause().String(),
		Effect:          a.GetEffect().String(),
		HeaderText:      translation(a.GetHeaderText()),
		DescriptionText: translation(a.GetDescriptionText()),
	}
	for _, p := range a.GetActivePeriod() {
		out.ActivePeriods = append(out.ActivePeriods, AlertPeriod{
			Start: unixTime(p.GetStart()),
			End:   unixTime(p.GetEnd()),
		})
	}
	for _, ie := range a.GetInformedEntity() {
		e := InformedEntity{
			AgencyID: ie.GetAgencyId(),
			RouteID:  ie.GetRouteId(),
			StopID:   ie.GetStopId(),
		}
		if ie.RouteType != nil {
			rt := ie.GetRouteType()
			e.RouteType = &rt
		}
		if td := ie.GetTrip(); td != nil {
			d := tripDescriptor(td)
			e.Trip = &d
		}
		out.InformedEntities = append(out.InformedEntities, e)
	}
	return out
}

// translation picks English, then the untagged text, then whatever comes
// first.
func translation(ts *gtfsrt.TranslatedString) string {
	if ts == nil {
		return ""
	}
	var untagged, first string
	for i, t := range ts.GetTranslation() {
		if i == 0 {
			first = t.GetText()
		}
		switch t.GetLanguage() {
		case "en":
			return t.GetText()
		case "":
			if untagged == "" {
				untagged = t.GetText()
			}
		}
	}
	if untagged != "" {
		return untagged
	}
	return first
}

func unixTime(sec uint64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
