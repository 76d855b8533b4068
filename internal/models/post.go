// Package models defines the canonical records persisted by threadwatch.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is the canonical record produced for a discovered content item,
// regardless of which raw shape it was extracted from.
type Post struct {
	ID        int64     `json:"id" db:"id"`
	Channel   string    `json:"channel" db:"channel"`
	PostID    string    `json:"post_id" db:"post_id"`
	URL       string    `json:"url" db:"url"`
	Title     string    `json:"title" db:"title"`
	Score     int       `json:"score" db:"score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	SeenAt    time.Time `json:"seen_at" db:"seen_at"`
	Commented bool      `json:"commented" db:"commented"`

	// Queue bookkeeping. Attempts and LastError are observability only;
	// a failing record stays eligible for redelivery indefinitely.
	Attempts       int        `json:"attempts" db:"attempts"`
	LastError      *string    `json:"last_error,omitempty" db:"last_error"`
	ClaimToken     *uuid.UUID `json:"claim_token,omitempty" db:"claim_token"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
}

// Age returns the hours elapsed between the post's origin-reported creation
// time and now.
func (p *Post) Age(now time.Time) float64 {
	return now.Sub(p.CreatedAt).Hours()
}

// Channel is the per-source supplemental metadata row, keyed by channel name
// and always overwritten with the latest fetched description.
type Channel struct {
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// QueueStats summarizes the state of the comment queue for the status API.
type QueueStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Leased    int `json:"leased"`
	Commented int `json:"commented"`
}
