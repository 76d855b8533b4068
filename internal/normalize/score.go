package normalize

import (
	"strconv"
	"strings"
)

const (
	thousand = 1_000
	million  = 1_000_000
)

// ParseScore converts a raw score value into a non-negative integer. Inputs
// range from plain integers to abbreviated text ("1.5k", "2m") to vote labels
// ("301 points") to placeholder glyphs. Parsing is best-effort and never
// fails: anything unparsable is 0, never an aborted extraction.
func ParseScore(raw string) int {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, "points", "")
	cleaned = strings.ReplaceAll(cleaned, "point", "")
	cleaned = strings.ReplaceAll(cleaned, "votes", "")
	cleaned = strings.ReplaceAll(cleaned, "vote", "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || cleaned == "•" || cleaned == "-" {
		return 0
	}

	multiplier := 1
	switch {
	case strings.HasSuffix(cleaned, "k"):
		multiplier = thousand
		cleaned = strings.TrimSuffix(cleaned, "k")
	case strings.HasSuffix(cleaned, "m"):
		multiplier = million
		cleaned = strings.TrimSuffix(cleaned, "m")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}

	score := int(value * float64(multiplier))
	if score < 0 {
		return 0
	}
	return score
}
