// Package normalize converts the inconsistent timestamp and score encodings
// found in raw channel listings into canonical values.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyTimestamp is returned for blank input.
var ErrEmptyTimestamp = errors.New("empty timestamp")

// numeric-offset suffix length, e.g. "+0000" in
// "2025-11-19T23:20:32.653000+0000".
const colonlessOffsetLen = 5

// ParseTimestamp parses one of the known timestamp encodings into a UTC
// instant: ISO-8601 with a Z suffix, ISO-8601 with a colonless numeric offset,
// a unix epoch in seconds, or a relative-age phrase ("3 hours ago", "a min",
// "just now"). now anchors relative phrases.
func ParseTimestamp(raw string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyTimestamp
	}

	lower := strings.ToLower(s)
	if lower == "just now" || lower == "moments ago" {
		return now.UTC(), nil
	}

	if strings.HasSuffix(s, "Z") {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse ISO timestamp %q: %w", raw, err)
		}
		return t.UTC(), nil
	}

	if repaired, ok := repairColonlessOffset(s); ok {
		t, err := time.Parse(time.RFC3339, repaired)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse ISO timestamp %q: %w", raw, err)
		}
		return t.UTC(), nil
	}

	if isNumeric(s) {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse epoch %q: %w", raw, err)
		}
		return FromEpoch(secs), nil
	}

	return parseRelative(lower, now)
}

// FromEpoch converts seconds since the unix epoch (fractions allowed) into a
// UTC instant.
func FromEpoch(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
}

// repairColonlessOffset turns a trailing 4-digit numeric offset ("+0000")
// into the RFC 3339 form ("+00:00").
func repairColonlessOffset(s string) (string, bool) {
	if len(s) < colonlessOffsetLen+1 {
		return "", false
	}
	offset := s[len(s)-colonlessOffsetLen:]
	if offset[0] != '+' && offset[0] != '-' {
		return "", false
	}
	for _, c := range offset[1:] {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	head := s[:len(s)-colonlessOffsetLen]
	return head + offset[:3] + ":" + offset[3:], true
}

func isNumeric(s string) bool {
	dot := false
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !dot && i > 0:
			dot = true
		default:
			return false
		}
	}
	return true
}

// parseRelative handles age phrases like "3 hours ago", "an hour ago",
// "5 min". The word "a"/"an" means one; the unit is matched by substring.
func parseRelative(s string, now time.Time) (time.Time, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return time.Time{}, ErrEmptyTimestamp
	}

	var amount float64
	switch parts[0] {
	case "a", "an":
		amount = 1
	default:
		f, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse relative amount %q: %w", s, err)
		}
		amount = f
	}

	unit := ""
	if len(parts) > 1 {
		unit = parts[1]
	}

	var delta time.Duration
	switch {
	case strings.Contains(unit, "min"):
		delta = time.Duration(amount * float64(time.Minute))
	case strings.Contains(unit, "hour") || unit == "h":
		delta = time.Duration(amount * float64(time.Hour))
	case strings.Contains(unit, "sec") || unit == "s":
		delta = time.Duration(amount * float64(time.Second))
	default:
		return time.Time{}, fmt.Errorf("unrecognized age unit %q in %q", unit, s)
	}

	return now.Add(-delta).UTC(), nil
}
