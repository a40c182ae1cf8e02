package news

import (
	"time"
)

// Timestamp layouts seen across vendor payloads, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime normalizes a vendor-supplied timestamp value to an absolute UTC
// instant. Strings are tried against common layouts, numbers are treated as
// epoch seconds (or milliseconds when implausibly large). Anything missing or
// unparsable normalizes to the current time, matching ingestion semantics:
// an item without a usable timestamp is treated as published now.
func ParseTime(v any) time.Time {
	switch val := v.(type) {
	case nil:
	case time.Time:
		if !val.IsZero() {
			return val.UTC()
		}
	case string:
		if val == "" {
			break
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t.UTC()
			}
		}
	case float64:
		return fromEpoch(val)
	case int64:
		return fromEpoch(float64(val))
	case int:
		return fromEpoch(float64(val))
	}
	return time.Now().UTC()
}

func fromEpoch(v float64) time.Time {
	if v <= 0 {
		return time.Now().UTC()
	}
	// Values past the year 2255 in seconds are assumed to be milliseconds.
	if v > 9e9 {
		return time.UnixMilli(int64(v)).UTC()
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
