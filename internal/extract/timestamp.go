package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FindTimestamp applies patterns in order and returns the first match that
// forms a valid wall-clock time. DefaultTimestampPatterns is used when none
// are given. fallback is returned when nothing usable is found.
func FindTimestamp(text string, fallback time.Time, patterns ...*regexp.Regexp) time.Time {
	if ts, ok := MatchTimestamp(text, patterns...); ok {
		return ts
	}
	return fallback
}

// MatchTimestamp is FindTimestamp without a fallback.
func MatchTimestamp(text string, patterns ...*regexp.Regexp) (time.Time, bool) {
	if len(patterns) == 0 {
		patterns = DefaultTimestampPatterns
	}
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if ts, ok := buildTimestamp(re, m); ok {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func buildTimestamp(re *regexp.Regexp, m []string) (time.Time, bool) {
	g := func(name string) string {
		if i := re.SubexpIndex(name); i > 0 && i < len(m) {
			return m[i]
		}
		return ""
	}

	day, ok := atoi(g("day"))
	if !ok {
		return time.Time{}, false
	}
	month, ok := atoi(g("month"))
	if mon := strings.ToLower(g("mon")); mon != "" {
		month, ok = SpanishMonths[mon[:3]]
	}
	if !ok {
		return time.Time{}, false
	}
	year, ok := atoi(g("year"))
	if !ok {
		return time.Time{}, false
	}
	switch len(g("year")) {
	case 2:
		year += 2000
	case 4:
	default:
		return time.Time{}, false
	}

	var hour, minute, second int
	if h := g("hour"); h != "" {
		hour, _ = atoi(h)
		minute, _ = atoi(g("minute"))
		if s := g("second"); s != "" {
			second, _ = atoi(s)
		}
		if ampm := g("ampm"); ampm != "" {
			if hour < 1 || hour > 12 {
				return time.Time{}, false
			}
			hour = applyMeridiem(hour, ampm)
		}
	}

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	ts := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if ts.Day() != day {
		// 31/02 and friends normalise into the next month
		return time.Time{}, false
	}
	return ts, true
}

// applyMeridiem converts a 12-hour clock hour to 24-hour form.
func applyMeridiem(hour int, marker string) int {
	marker = strings.ToLower(strings.NewReplacer(".", "", " ", "").Replace(marker))
	switch {
	case marker == "pm" && hour != 12:
		return hour + 12
	case marker == "am" && hour == 12:
		return 0
	}
	return hour
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
