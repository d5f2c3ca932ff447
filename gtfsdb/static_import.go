package gtfsdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jamespfennell/gtfs"
	"nextstop.transit.org/internal/logging"
)

// Tables are cleared children first so foreign keys hold at every step.
var importClearOrder = []string{
	"alert_active_period",
	"alert_informed_entity",
	"alert",
	"stop_visit",
	"trip_run",
	"vehicle",
	"feed_tick",
	"stop_times",
	"trips",
	"calendar_dates",
	"calendar",
	"stops",
	"routes",
	"agencies",
}

// processAndStoreGTFSData replaces the static schedule with the contents of
// a GTFS zip. The swap happens in one transaction; a parse or insert failure
// leaves the previous schedule in place. Data identical to the last import
// from the same source is skipped.
func (c *Client) processAndStoreGTFSData(ctx context.Context, b []byte, source string) error {
	sum := sha256.Sum256(b)
	hash := hex.EncodeToString(sum[:])

	prev, err := c.Queries.GetImportMetadata(ctx)
	switch {
	case err == nil && prev.FileHash == hash && prev.FileSource == source:
		if c.config.verbose {
			logging.LogOperation(c.logger, "gtfs_import_skipped",
				slog.String("source", source),
				slog.String("hash", hash))
		}
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("error reading import metadata: %w", err)
	}

	startTime := time.Now()
	defer func() {
		c.importRuntime = time.Since(startTime)
		if c.config.verbose {
			logging.LogOperation(c.logger, "gtfs_import_finished",
				slog.String("source", source),
				slog.Duration("runtime", c.importRuntime))
		}
	}()

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return fmt.Errorf("error parsing GTFS data: %w", err)
	}

	if c.config.verbose {
		attrs := []slog.Attr{slog.Int("warnings", len(staticData.Warnings))}
		for k, v := range staticDataCounts(staticData) {
			attrs = append(attrs, slog.Int(k, v))
		}
		logging.LogOperation(c.logger, "gtfs_static_parsed", attrs...)
	}

	c.LockWrite()
	defer c.UnlockWrite()

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "gtfs_import")

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	qtx := c.Queries.WithTx(tx)
	if err := storeStatic(ctx, qtx, staticData); err != nil {
		return err
	}
	err = qtx.UpsertImportMetadata(ctx, ImportMetadata{
		FileHash:   hash,
		FileSource: source,
		ImportTime: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("error recording import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing GTFS import: %w", err)
	}
	return nil
}

// clearAllGTFSData empties the schedule and everything derived from it.
// The import metadata survives.
func (c *Client) clearAllGTFSData(ctx context.Context) error {
	c.LockWrite()
	defer c.UnlockWrite()

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "gtfs_clear")

	if err := clearTables(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range importClearOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}
	return nil
}

func storeStatic(ctx context.Context, qtx *Queries, staticData *gtfs.Static) error {
	for _, a := range staticData.Agencies {
		params := CreateAgencyParams{
			ID:       a.Id,
			Name:     a.Name,
			Url:      a.Url,
			Timezone: a.Timezone,
			Lang:     toNullString(a.Language),
			Phone:    toNullString(a.Phone),
			FareUrl:  toNullString(a.FareUrl),
			Email:    toNullString(a.Email),
		}
		if err := qtx.CreateAgency(ctx, params); err != nil {
			return fmt.Errorf("unable to create agency %s: %w", a.Id, err)
		}
	}

	singleAgencyID := ""
	if len(staticData.Agencies) == 1 {
		singleAgencyID = staticData.Agencies[0].Id
	}

	for _, r := range staticData.Routes {
		agencyID := ""
		if r.Agency != nil {
			agencyID = r.Agency.Id
		}
		route := CreateRouteParams{
			ID:        r.Id,
			AgencyID:  pickFirstAvailable(agencyID, singleAgencyID),
			ShortName: toNullString(r.ShortName),
			LongName:  toNullString(r.LongName),
			Type:      int64(r.Type),
			Url:       toNullString(r.Url),
			Color:     toNullString(r.Color),
			TextColor: toNullString(r.TextColor),
		}
		if err := qtx.CreateRoute(ctx, route); err != nil {
			return fmt.Errorf("unable to create route %s: %w", r.Id, err)
		}
	}

	for _, s := range staticData.Stops {
		params := CreateStopParams{
			ID:           s.Id,
			Code:         toNullString(s.Code),
			Name:         toNullString(s.Name),
			LocationType: NullInt64(int64(s.Type)),
			Timezone:     toNullString(s.Timezone),
			PlatformCode: toNullString(s.PlatformCode),
		}
		if s.Latitude != nil {
			params.Lat = *s.Latitude
		}
		if s.Longitude != nil {
			params.Lon = *s.Longitude
		}
		if s.Parent != nil {
			params.ParentStation = toNullString(s.Parent.Id)
		}
		if err := qtx.CreateStop(ctx, params); err != nil {
			return fmt.Errorf("unable to create stop %s: %w", s.Id, err)
		}
	}

	for _, s := range staticData.Services {
		params := CreateCalendarParams{
			ID:        s.Id,
			Monday:    boolToInt(s.Monday),
			Tuesday:   boolToInt(s.Tuesday),
			Wednesday: boolToInt(s.Wednesday),
			Thursday:  boolToInt(s.Thursday),
			Friday:    boolToInt(s.Friday),
			Saturday:  boolToInt(s.Saturday),
			Sunday:    boolToInt(s.Sunday),
			StartDate: formatDate(s.StartDate),
			EndDate:   formatDate(s.EndDate),
		}
		if err := qtx.CreateCalendar(ctx, params); err != nil {
			return fmt.Errorf("unable to create calendar %s: %w", s.Id, err)
		}

		for _, d := range s.AddedDates {
			if err := qtx.CreateCalendarDate(ctx, CalendarDate{ServiceID: s.Id, Date: formatDate(d), ExceptionType: 1}); err != nil {
				return fmt.Errorf("unable to create calendar date for %s: %w", s.Id, err)
			}
		}
		for _, d := range s.RemovedDates {
			if err := qtx.CreateCalendarDate(ctx, CalendarDate{ServiceID: s.Id, Date: formatDate(d), ExceptionType: 2}); err != nil {
				return fmt.Errorf("unable to create calendar date for %s: %w", s.Id, err)
			}
		}
	}

	for _, t := range staticData.Trips {
		params := CreateTripParams{
			ID:            t.ID,
			TripHeadsign:  toNullString(t.Headsign),
			TripShortName: toNullString(t.ShortName),
			DirectionID:   directionID(t.DirectionId),
			BlockID:       toNullString(t.BlockID),
		}
		if t.Route != nil {
			params.RouteID = t.Route.Id
		}
		if t.Service != nil {
			params.ServiceID = t.Service.Id
		}
		if err := qtx.CreateTrip(ctx, params); err != nil {
			return fmt.Errorf("unable to create trip %s: %w", t.ID, err)
		}
	}

	for _, t := range staticData.Trips {
		for _, st := range t.StopTimes {
			if st.Stop == nil {
				continue
			}
			params := CreateStopTimeParams{
				TripID:        t.ID,
				ArrivalTime:   int64(st.ArrivalTime / time.Second),
				DepartureTime: int64(st.DepartureTime / time.Second),
				StopID:        st.Stop.Id,
				StopSequence:  int64(st.StopSequence),
				StopHeadsign:  toNullString(st.Headsign),
				PickupType:    toNullInt64(int64(st.PickupType)),
				DropOffType:   toNullInt64(int64(st.DropOffType)),
			}
			if err := qtx.CreateStopTime(ctx, params); err != nil {
				return fmt.Errorf("unable to create stop time %s/%d: %w", t.ID, st.StopSequence, err)
			}
		}
	}

	return nil
}

// directionID maps the parser's tri-state direction onto GTFS 0/1.
func directionID(d gtfs.DirectionID) sql.NullInt64 {
	switch d {
	case gtfs.DirectionID_True:
		return NullInt64(1)
	case gtfs.DirectionID_False:
		return NullInt64(0)
	default:
		return sql.NullInt64{}
	}
}
