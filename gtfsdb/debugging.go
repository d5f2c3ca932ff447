package gtfsdb

import (
	"context"
	"fmt"

	"github.com/jamespfennell/gtfs"
)

func staticDataCounts(staticData *gtfs.Static) map[string]int {
	stopTimes := 0
	for _, t := range staticData.Trips {
		stopTimes += len(t.StopTimes)
	}
	return map[string]int{
		"agencies":   len(staticData.Agencies),
		"routes":     len(staticData.Routes),
		"stops":      len(staticData.Stops),
		"calendar":   len(staticData.Services),
		"trips":      len(staticData.Trips),
		"stop_times": stopTimes,
	}
}

// TableCounts returns the row count of every table in the store.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	rows, err := c.DB.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the cursor before counting; in-memory stores hold one connection.
	_ = rows.Close()

	counts := make(map[string]int)
	for _, table := range tables {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := c.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, err
		}
		counts[table] = count
	}

	return counts, nil
}
