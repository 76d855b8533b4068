// Package extract converts raw channel listing records into canonical posts.
// Listings arrive in two shapes: an attribute bag read off rendered listing
// elements, and a structured object from the JSON listing endpoint. Both
// normalize into the same models.Post.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"threadwatch/internal/models"
	"threadwatch/internal/normalize"
)

// contentIDPrefix is the origin's type prefix on fullname identifiers,
// e.g. "t3_1p1n96a".
const contentIDPrefix = "t3_"

// commentsMarker is the path segment preceding the content ID in post URLs.
const commentsMarker = "/comments/"

var (
	// ErrMissingTitle rejects records with an empty title in either shape.
	ErrMissingTitle = errors.New("missing title")
	// ErrMissingURL rejects records with no resolvable location.
	ErrMissingURL = errors.New("missing permalink")
	// ErrNoContentID rejects records whose ID cannot be derived. A record
	// without a derivable ID is never assigned a placeholder; placeholders
	// could collide across records.
	ErrNoContentID = errors.New("no derivable content id")
)

// AttrPost is the attribute-bag raw shape: string attributes read off one
// rendered listing element.
type AttrPost struct {
	ID         string
	Title      string
	Permalink  string
	CreatedRaw string
	ScoreRaw   string
}

// APIPost is the structured-object raw shape from the JSON listing endpoint.
type APIPost struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Permalink  string    `json:"permalink"`
	Score      FlexScore `json:"score"`
	CreatedUTC float64   `json:"created_utc"`
}

// Extractor builds canonical posts from raw records. One record's failure is
// reported to the caller, never escalated past it; the batch continues.
type Extractor struct {
	origin string
}

// NewExtractor creates an extractor that resolves root-relative permalinks
// against originHost.
func NewExtractor(originHost string) *Extractor {
	return &Extractor{origin: strings.TrimSuffix(originHost, "/")}
}

// FromAttrs extracts a canonical post from an attribute-bag record.
func (e *Extractor) FromAttrs(channel string, raw AttrPost, now time.Time) (*models.Post, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	url, err := e.resolveURL(raw.Permalink)
	if err != nil {
		return nil, err
	}

	id, err := deriveContentID(raw.ID, url)
	if err != nil {
		return nil, err
	}

	createdAt, err := normalize.ParseTimestamp(raw.CreatedRaw, now)
	if err != nil {
		return nil, fmt.Errorf("timestamp for %s: %w", id, err)
	}

	return &models.Post{
		Channel:   channel,
		PostID:    id,
		URL:       url,
		Title:     title,
		Score:     normalize.ParseScore(raw.ScoreRaw),
		CreatedAt: createdAt,
	}, nil
}

// FromAPI extracts a canonical post from a structured-object record.
func (e *Extractor) FromAPI(channel string, raw APIPost, now time.Time) (*models.Post, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	url, err := e.resolveURL(raw.Permalink)
	if err != nil {
		return nil, err
	}

	id, err := deriveContentID(raw.ID, url)
	if err != nil {
		return nil, err
	}

	if raw.CreatedUTC <= 0 {
		return nil, fmt.Errorf("timestamp for %s: %w", id, normalize.ErrEmptyTimestamp)
	}

	return &models.Post{
		Channel:   channel,
		PostID:    id,
		URL:       url,
		Title:     title,
		Score:     normalize.ParseScore(string(raw.Score)),
		CreatedAt: normalize.FromEpoch(raw.CreatedUTC),
	}, nil
}

// resolveURL joins a root-relative permalink with the origin host; absolute
// URLs pass through unchanged.
func (e *Extractor) resolveURL(permalink string) (string, error) {
	permalink = strings.TrimSpace(permalink)
	if permalink == "" {
		return "", ErrMissingURL
	}
	if strings.HasPrefix(permalink, "/") {
		return e.origin + permalink, nil
	}
	return permalink, nil
}

// deriveContentID prefers the explicit identifier (type prefix stripped),
// falling back to the segment after the comments marker in the URL.
func deriveContentID(id, url string) (string, error) {
	id = strings.TrimPrefix(strings.TrimSpace(id), contentIDPrefix)
	if id != "" {
		return id, nil
	}

	if i := strings.Index(url, commentsMarker); i >= 0 {
		rest := url[i+len(commentsMarker):]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			rest = rest[:j]
		}
		if rest != "" {
			return rest, nil
		}
	}

	return "", ErrNoContentID
}
