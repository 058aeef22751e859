package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var missingTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"none": true,
	"-":    true,
}

// parseNumber returns NaN for missing or unparseable cells. A single comma
// with no dot is read as a decimal separator.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return f
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04",
	"2006/01/02",
	"02.01.2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05-0700",
}

// parseTimestamp parses a timestamp with or without a zone and returns it as
// a naive UTC wall-clock time.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return parseDate(s)
}

var timeLayouts = []string{"15:04:05", "15:04"}

// parseClock returns the offset from midnight of an HH:MM[:SS] string.
func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", s)
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true", "t", "yes", "y", "ja", "j":
		return true, nil
	case "0", "0.0", "false", "f", "no", "n", "nej":
		return false, nil
	case "":
		return false, fmt.Errorf("empty customer-type flag")
	default:
		return false, fmt.Errorf("unrecognized flag %q", s)
	}
}
