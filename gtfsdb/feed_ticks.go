package gtfsdb

import (
	"context"
	"database/sql"
)

func (q *Queries) InsertFeedTick(ctx context.Context, arg FeedTick) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO feed_tick (
			id, feed, header_timestamp, applied_at, trip_updates, vehicles, alerts, skipped_entities
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Feed, arg.HeaderTimestamp, arg.AppliedAt,
		arg.TripUpdates, arg.Vehicles, arg.Alerts, arg.SkippedEntities,
	)
	return err
}

// LastFeedTimestamp returns the newest header timestamp applied for the
// feed, or zero when none has been applied.
func (q *Queries) LastFeedTimestamp(ctx context.Context, feed string) (int64, error) {
	var ts sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT MAX(header_timestamp) FROM feed_tick WHERE feed = ?`, feed).Scan(&ts)
	if err != nil {
		return 0, err
	}
	return ts.Int64, nil
}
