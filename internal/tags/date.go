package tags

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseDateString parses the loosely formatted release dates found in tags:
// a bare year, year-month, a full date, or a date-time with an optional
// timezone suffix. Missing date components default to 1, missing time
// components to 0, and any timezone is discarded. General-purpose date
// parsers guess too much here; "1994" must mean 1994-01-01, not today's
// date with the year swapped.
func ParseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	datePart := s
	timePart := ""
	if i := strings.IndexAny(s, "T "); i >= 0 {
		datePart, timePart = s[:i], s[i+1:]
	}

	ymd, err := splitNumericFields(datePart, "-", 3, 1)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed date %q: %w", s, err)
	}

	if timePart != "" && !strings.ContainsFunc(timePart, unicode.IsDigit) {
		return time.Time{}, fmt.Errorf("malformed date %q: time has no digits", s)
	}
	// Drop any timezone suffix: +hhmm, -hhmm or a trailing Z.
	if i := strings.IndexAny(timePart, "+-"); i >= 0 {
		timePart = timePart[:i]
	}
	for timePart != "" && !unicode.IsDigit(rune(timePart[len(timePart)-1])) {
		timePart = timePart[:len(timePart)-1]
	}

	var hms []int
	if timePart == "" {
		hms = []int{0, 0, 0}
	} else {
		hms, err = splitNumericFields(timePart, ":", 3, 0)
		if err != nil {
			return time.Time{}, fmt.Errorf("malformed date %q: %w", s, err)
		}
	}

	return time.Date(ymd[0], time.Month(ymd[1]), ymd[2], hms[0], hms[1], hms[2], 0, time.UTC), nil
}

// splitNumericFields splits on sep into at most max all-digit fields,
// padding absent ones with def.
func splitNumericFields(s, sep string, max, def int) ([]int, error) {
	parts := strings.Split(s, sep)
	if len(parts) > max {
		return nil, fmt.Errorf("too many fields in %q", s)
	}
	out := make([]int, max)
	for i := range out {
		if i >= len(parts) || parts[i] == "" {
			out[i] = def
			continue
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil || strings.ContainsAny(parts[i], "+- ") {
			return nil, fmt.Errorf("non-numeric field %q", parts[i])
		}
		out[i] = n
	}
	return out, nil
}
