package config

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
)

// ParseBool implements the backup-specific boolean grammar: strip
// non-alphanumeric characters, lowercase, and compare against the known
// true spellings. Anything else, including unset or garbled input, is
// false.
func ParseBool(raw string) bool {
	cleaned := stripNonAlphanumeric(strings.ToLower(raw))
	switch cleaned {
	case "yes", "y", "on", "true", "1":
		return true
	default:
		return false
	}
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

func stripNonAlphanumeric(s string) string {
	return nonAlphanumeric.ReplaceAllString(s, "")
}

var durationPattern = regexp.MustCompile(`^\s*([0-9]+)\s*([a-zA-Z]*)\s*$`)

// ParseDuration accepts "<N>[ ]?<unit>" where unit is a prefix of one of
// s/sec.../m/min.../h/hour.../d/day.../w/week..., and returns the
// corresponding time.Duration. A bare number with no unit, or an
// unrecognized unit, is a parse error.
func ParseDuration(raw string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, cerr.Newf("invalid duration %q", raw)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, cerr.Wrapf(err, "invalid duration %q", raw)
	}

	unit := strings.ToLower(m[2])
	switch {
	case unit == "":
		return 0, cerr.Newf("duration %q is missing a unit", raw)
	case strings.HasPrefix("seconds", unit):
		return time.Duration(n) * time.Second, nil
	case strings.HasPrefix("minutes", unit):
		return time.Duration(n) * time.Minute, nil
	case strings.HasPrefix("hours", unit):
		return time.Duration(n) * time.Hour, nil
	case strings.HasPrefix("days", unit):
		return time.Duration(n) * 24 * time.Hour, nil
	case strings.HasPrefix("weeks", unit):
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, cerr.Newf("duration %q has unknown unit %q", raw, m[2])
	}
}

func parseUint(raw string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}
