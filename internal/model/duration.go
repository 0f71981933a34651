package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// isoDurationPattern matches a (simplified) ISO-8601 duration: PnYnMnDTnHnMnS.
// keep only needs the date-side components (P3D, P1W) plus optional time
// components, so this covers what find/list_items accept for since/until.
var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseSinceUntil resolves a since/until argument to an absolute time,
// relative to now. Accepts either an ISO-8601 duration (interpreted as
// "now minus duration") or an ISO-8601 / RFC3339 date.
func ParseSinceUntil(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty since/until value")
	}
	if value[0] == 'P' {
		d, err := parseISODuration(value)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date/duration: %q", value)
}

func parseISODuration(value string) (time.Duration, error) {
	m := isoDurationPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid ISO-8601 duration: %q", value)
	}
	years := atoiOr0(m[1])
	months := atoiOr0(m[2])
	weeks := atoiOr0(m[3])
	days := atoiOr0(m[4])
	hours := atoiOr0(m[5])
	minutes := atoiOr0(m[6])
	seconds, _ := strconv.ParseFloat(orZero(m[7]), 64)

	totalDays := years*365 + months*30 + weeks*7 + days
	d := time.Duration(totalDays) * 24 * time.Hour
	d += time.Duration(hours) * time.Hour
	d += time.Duration(minutes) * time.Minute
	d += time.Duration(seconds * float64(time.Second))
	return d, nil
}

func atoiOr0(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
