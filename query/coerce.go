package query

import (
	"fmt"
	"strconv"
	"time"
)

// supported date-string layouts, tried in order. RFC3339 covers the common
// case; the bare date form covers the spec's own example filters
// ("2024-05-01").
var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
}

// CoerceDate normalizes a user-supplied date value into a time.Time. It
// accepts a native time.Time, a parseable date string, or a numeric epoch in
// milliseconds (int64, float64, or json.Number-shaped string of digits).
func CoerceDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("query: invalid date string %q", t)
	default:
		return time.Time{}, fmt.Errorf("query: unsupported date value type %T", v)
	}
}
