// Package period maps raw reference dates and period tokens onto the
// calendar grain the pipelines aggregate at.
package period

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var quarterToken = regexp.MustCompile(`^(\d{4})Q([1-4])$`)

// ParseDate parses the free-form date strings the source tables carry.
// The second return is false when nothing matches; the row is dropped
// downstream, never defaulted to a sentinel date.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MonthStart truncates a raw date string to the first day of its month.
func MonthStart(raw string) (time.Time, bool) {
	t, ok := ParseDate(raw)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
}

// QuarterStart maps a raw period onto the first day of its quarter.
// Two shapes are accepted: a parseable calendar date, or a native period
// token <year><sep>Q<1-4> where the separator is nothing, a hyphen or a
// space and the Q is case-insensitive. "2024Q3", "2024-q3" and "2024 Q3"
// all yield 2024-07-01.
func QuarterStart(raw string) (time.Time, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	if m := quarterToken.FindStringSubmatch(normalized); m != nil {
		year, _ := strconv.Atoi(m[1])
		quarter, _ := strconv.Atoi(m[2])
		return time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC), true
	}
	t, ok := ParseDate(raw)
	if !ok {
		return time.Time{}, false
	}
	return OfDate(t), true
}

// OfDate truncates a calendar date to its quarter start: Jan/Apr/Jul/Oct 1.
func OfDate(t time.Time) time.Time {
	month := time.Month(((int(t.Month())-1)/3)*3 + 1)
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, time.UTC)
}
