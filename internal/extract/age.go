package extract

import "time"

// WithinAge reports whether a post created at createdAt is still inside the
// recency horizon. The boundary is inclusive: a post exactly maxAgeHours old
// is kept.
func WithinAge(createdAt, now time.Time, maxAgeHours int) bool {
	age := now.Sub(createdAt).Hours()
	return age <= float64(maxAgeHours)
}
