package gtfsdb

import (
	"database/sql"
	"errors"
	"time"
)

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toNullInt64(i int64) sql.NullInt64 {
	if i != 0 {
		return sql.NullInt64{
			Int64: i,
			Valid: true,
		}
	}
	return sql.NullInt64{}
}

// toNullString converts a string to sql.NullString
func toNullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

func toNullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func pickFirstAvailable(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// NullString is exported for callers that build params outside the package.
func NullString(s string) sql.NullString {
	return toNullString(s)
}

// NullInt64 wraps i as a valid value, including zero.
func NullInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: true}
}

// NullFloat64 wraps an optional float.
func NullFloat64(f *float64) sql.NullFloat64 {
	return toNullFloat64(f)
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("20060102")
}
