package service

import (
	"fmt"
	"strings"
	"time"
)

// timeLayouts are tried in order by ParseTime. The store emits RFC 3339 with
// or without a zone; CSV files in the wild mostly carry plain dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"1/2/2006",
	"01/02/2006",
}

// ParseTime parses a timestamp as produced by the store or found in a CSV
// cell. Values without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time: %q", s)
}

// FormatTime formats a timestamp the way the store accepts it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
