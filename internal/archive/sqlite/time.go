package sqlite

import "time"

// timeLayout is RFC3339 with fixed sub-second precision so lexicographic
// ordering matches chronological ordering in the taken_at index.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
