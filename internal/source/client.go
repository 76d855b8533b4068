// Package source fetches channel listings and metadata from the upstream
// site. The hot listing is read from the JSON endpoint when available, with
// an HTML fallback that parses the current listing markup.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"threadwatch/internal/extract"
	"threadwatch/internal/logger"
	"threadwatch/internal/models"
)

const (
	// defaultHTTPTimeout is the default timeout for HTTP requests
	defaultHTTPTimeout = 30 * time.Second

	// listingLimit caps how many records one listing fetch returns.
	listingLimit = 50

	userAgent = "Mozilla/5.0 (compatible; threadwatch/1.0)"
)

// Client fetches listings and channel metadata over HTTP.
type Client struct {
	origin    string
	client    *http.Client
	extractor *extract.Extractor
	logger    logger.Logger
}

// NewClient creates a listing client against the given origin host.
func NewClient(originHost string, log logger.Logger) *Client {
	origin := strings.TrimRight(originHost, "/")
	return &Client{
		origin:    origin,
		client:    &http.Client{Timeout: defaultHTTPTimeout},
		extractor: extract.NewExtractor(origin),
		logger:    log,
	}
}

// listingResponse mirrors the JSON hot listing envelope.
type listingResponse struct {
	Data struct {
		Children []struct {
			Data extract.APIPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// aboutResponse mirrors the JSON channel metadata envelope.
type aboutResponse struct {
	Data struct {
		PublicDescription string `json:"public_description"`
	} `json:"data"`
}

// FetchPosts returns the current hot posts of a channel as normalized
// records. Records that cannot be normalized are skipped individually and
// counted; one bad record never fails the listing.
func (c *Client) FetchPosts(ctx context.Context, channel string, now time.Time) ([]*models.Post, int, error) {
	posts, skipped, err := c.fetchJSON(ctx, channel, now)
	if err == nil {
		return posts, skipped, nil
	}

	c.logger.Warn("JSON listing unavailable, falling back to HTML",
		logger.String("channel", channel),
		logger.Error(err),
	)

	return c.fetchHTML(ctx, channel, now)
}

func (c *Client) fetchJSON(ctx context.Context, channel string, now time.Time) ([]*models.Post, int, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", c.origin, channel, listingLimit)

	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()

	var listing listingResponse
	if decodeErr := json.NewDecoder(body).Decode(&listing); decodeErr != nil {
		return nil, 0, fmt.Errorf("decode listing: %w", decodeErr)
	}

	posts := make([]*models.Post, 0, len(listing.Data.Children))
	skipped := 0
	for _, child := range listing.Data.Children {
		post, extractErr := c.extractor.FromAPI(channel, child.Data, now)
		if extractErr != nil {
			c.logger.Debug("Skipping listing record",
				logger.String("channel", channel),
				logger.Error(extractErr),
			)
			skipped++
			continue
		}
		posts = append(posts, post)
	}

	return posts, skipped, nil
}

func (c *Client) fetchHTML(ctx context.Context, channel string, now time.Time) ([]*models.Post, int, error) {
	url := fmt.Sprintf("%s/r/%s/hot/", c.origin, channel)

	body, err := c.get(ctx, url, "text/html")
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, 0, fmt.Errorf("parse listing HTML: %w", err)
	}

	posts := make([]*models.Post, 0, listingLimit)
	skipped := 0
	doc.Find("shreddit-post").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := extract.AttrPost{
			ID:         sel.AttrOr("id", ""),
			Title:      sel.AttrOr("post-title", ""),
			Permalink:  sel.AttrOr("permalink", ""),
			CreatedRaw: sel.AttrOr("created-timestamp", ""),
			ScoreRaw:   sel.AttrOr("score", ""),
		}
		if raw.CreatedRaw == "" {
			// Older markup nests the timestamp in a time element.
			raw.CreatedRaw = sel.Find("time[datetime]").AttrOr("datetime", "")
		}

		post, extractErr := c.extractor.FromAttrs(channel, raw, now)
		if extractErr != nil {
			c.logger.Debug("Skipping listing record",
				logger.String("channel", channel),
				logger.Error(extractErr),
			)
			skipped++
			return true
		}

		posts = append(posts, post)
		return len(posts) < listingLimit
	})

	return posts, skipped, nil
}

// FetchDescription returns the channel's public description, empty when the
// channel publishes none.
func (c *Client) FetchDescription(ctx context.Context, channel string) (string, error) {
	url := fmt.Sprintf("%s/r/%s/about.json", c.origin, channel)

	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return "", err
	}
	defer body.Close()

	var about aboutResponse
	if decodeErr := json.NewDecoder(body).Decode(&about); decodeErr != nil {
		return "", fmt.Errorf("decode channel metadata: %w", decodeErr)
	}

	return strings.TrimSpace(about.Data.PublicDescription), nil
}

func (c *Client) get(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}
