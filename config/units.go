package config

import (
	"regexp"
	"strconv"
	"strings"
)

var valueUnitRegexp = regexp.MustCompile(`^([0-9.]+)\s*([a-zA-Z]+)`)

// SplitUnit splits a composite value such as "1GHz" into its number and unit.
// A value without a known unit falls back to the first unit, and a value that
// is not a number at all becomes 0.
func SplitUnit(value string, units []string) (float64, string) {
	value = strings.TrimSpace(value)
	fallback := ""
	if len(units) > 0 {
		fallback = units[0]
	}

	if m := valueUnitRegexp.FindStringSubmatch(value); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fallback
		}

		for _, u := range units {
			if u == m[2] {
				return n, u
			}
		}

		return n, fallback
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fallback
	}

	return n, fallback
}

// JoinUnit builds a composite value. Integral numbers are written without a
// decimal point.
func JoinUnit(n float64, unit string) string {
	return strconv.FormatFloat(n, 'f', -1, 64) + unit
}
