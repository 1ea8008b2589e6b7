package remotedb

import (
	"strconv"
	"time"
)

// TimeLayout is the timestamp format used by the tickets table. It matches
// the TEXT values already present in the database.
const TimeLayout = "2006-01-02 15:04:05"

// Row is a single result row keyed by column name. JSON numbers decode as
// float64, so the accessors normalize types for callers.
type Row map[string]any

// Int64 returns the named column as an integer, 0 when absent.
func (r Row) Int64(column string) int64 {
	switch v := r[column].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	}
	return 0
}

// String returns the named column as a string, "" when absent or null.
func (r Row) String(column string) string {
	if v, ok := r[column].(string); ok {
		return v
	}
	return ""
}

// Time parses the named column with TimeLayout; the zero time when the
// value is missing or malformed.
func (r Row) Time(column string) time.Time {
	v, ok := r[column].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
