package processing

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate turns the heterogeneous upstream date strings into a UTC time.
// Devpost submission windows such as "Jan 02 - Feb 15, 2025" resolve to their
// first day. The zero time is returned when nothing matches.
func ParseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	if ts, ok := parseLayouts(raw); ok {
		return ts
	}

	start, rest, found := strings.Cut(raw, " - ")
	if !found {
		return time.Time{}
	}
	start = strings.TrimSpace(start)
	if !strings.Contains(start, ",") {
		if i := strings.LastIndex(rest, ","); i >= 0 {
			start += "," + rest[i+1:]
		}
	}
	if ts, ok := parseLayouts(start); ok {
		return ts
	}
	return time.Time{}
}

func parseLayouts(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
