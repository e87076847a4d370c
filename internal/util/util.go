// Package util provides small utility helpers shared across Mercury's packages.
package util

import (
	"math"
	"strconv"
	"strings"
)

// timeUnit represents a single unit of time (hours, minutes, or seconds) with its value and labels.
type timeUnit struct {
	value    int64
	singular string
	plural   string
}

// NormalizeProcessName trims leading/trailing whitespace so process names from
// slightly-sloppy YAML input compare consistently with names used in edges.
func NormalizeProcessName(name string) string {
	return strings.TrimSpace(name)
}

// SliceEqual checks if two string slices are identical.
func SliceEqual(slice1, slice2 []string) bool {
	if len(slice1) != len(slice2) {
		return false
	}

	for i := range slice1 {
		if slice1[i] != slice2[i] {
			return false
		}
	}

	return true
}

// FormatSeconds formats a duration given in fractional seconds as a short
// human-readable string (e.g. "1 hour, 2 minutes"), used when logging the
// Catastrophic state's shutdown grace period.
func FormatSeconds(seconds float64) string {
	const (
		minutesPerHour   = 60
		secondsPerMinute = 60
	)

	totalSeconds := int64(seconds)
	hours := totalSeconds / (minutesPerHour * secondsPerMinute)
	minutes := (totalSeconds / secondsPerMinute) % minutesPerHour
	secs := totalSeconds % secondsPerMinute

	units := []timeUnit{
		{hours, "hour", "hours"},
		{minutes, "minute", "minutes"},
		{secs, "second", "seconds"},
	}

	parts := make([]string, 0, len(units))

	for i, unit := range units {
		part := formatTimeUnit(unit.value, unit.singular, unit.plural, i == len(units)-1 && len(parts) == 0)
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return "0 seconds"
	}

	return strings.Join(parts, ", ")
}

// formatTimeUnit formats a single time unit, skipping zero values unless forceInclude is set.
func formatTimeUnit(value int64, singular, plural string, forceInclude bool) string {
	switch {
	case value == 1:
		return "1 " + singular
	case value == 0 && !forceInclude:
		return ""
	default:
		return strconv.FormatInt(value, 10) + " " + plural
	}
}

// Clamp restricts a float to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
