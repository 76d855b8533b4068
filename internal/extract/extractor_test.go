package extract

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://www.reddit.com"

func TestExtractor_FromAttrs(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	e := NewExtractor(testOrigin)

	post, err := e.FromAttrs("Outdoors", AttrPost{
		ID:         "t3_1p1n96a",
		Title:      "  Morning on the ridge  ",
		Permalink:  "/r/Outdoors/comments/1p1n96a/morning_on_the_ridge/",
		CreatedRaw: "2025-11-20T10:30:00.000000+0000",
		ScoreRaw:   "1.5k",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "Outdoors", post.Channel)
	assert.Equal(t, "1p1n96a", post.PostID)
	assert.Equal(t, testOrigin+"/r/Outdoors/comments/1p1n96a/morning_on_the_ridge/", post.URL)
	assert.Equal(t, "Morning on the ridge", post.Title)
	assert.Equal(t, 1500, post.Score)
	assert.Equal(t, time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC), post.CreatedAt)
	assert.False(t, post.Commented)
}

func TestExtractor_FromAttrs_Failures(t *testing.T) {
	now := time.Now().UTC()
	e := NewExtractor(testOrigin)

	valid := AttrPost{
		ID:         "t3_abc",
		Title:      "Title",
		Permalink:  "/r/test/comments/abc/title/",
		CreatedRaw: "2 hours ago",
	}

	tests := []struct {
		name    string
		mutate  func(*AttrPost)
		wantErr error
	}{
		{"empty title", func(p *AttrPost) { p.Title = "   " }, ErrMissingTitle},
		{"missing permalink", func(p *AttrPost) { p.Permalink = "" }, ErrMissingURL},
		{"no derivable id", func(p *AttrPost) {
			p.ID = ""
			p.Permalink = "/r/test/gallery/xyz"
		}, ErrNoContentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := valid
			tt.mutate(&raw)
			_, err := e.FromAttrs("test", raw, now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("bad timestamp", func(t *testing.T) {
		raw := valid
		raw.CreatedRaw = "eventually"
		_, err := e.FromAttrs("test", raw, now)
		assert.Error(t, err)
	})
}

func TestExtractor_ContentIDFromURL(t *testing.T) {
	now := time.Now().UTC()
	e := NewExtractor(testOrigin)

	post, err := e.FromAttrs("test", AttrPost{
		Title:      "No explicit id",
		Permalink:  "/r/test/comments/1xyz42/no_explicit_id/",
		CreatedRaw: "just now",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "1xyz42", post.PostID)
}

func TestExtractor_AbsoluteURLPassthrough(t *testing.T) {
	now := time.Now().UTC()
	e := NewExtractor(testOrigin)

	raw := AttrPost{
		ID:         "t3_q1",
		Title:      "Cross-posted",
		Permalink:  "https://other.example.com/r/test/comments/q1/x/",
		CreatedRaw: "just now",
	}
	post, err := e.FromAttrs("test", raw, now)
	require.NoError(t, err)
	assert.Equal(t, raw.Permalink, post.URL)
}

func TestExtractor_FromAPI(t *testing.T) {
	now := time.Now().UTC()
	e := NewExtractor(testOrigin)

	created := float64(now.Add(-time.Hour).Unix())
	post, err := e.FromAPI("test", APIPost{
		ID:         "abc123",
		Title:      "Hello",
		Permalink:  "/r/test/comments/abc123/hello",
		Score:      "1.2k",
		CreatedUTC: created,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "abc123", post.PostID)
	assert.Equal(t, 1200, post.Score)
	assert.Equal(t, testOrigin+"/r/test/comments/abc123/hello", post.URL)
	assert.WithinDuration(t, now.Add(-time.Hour), post.CreatedAt, time.Second)
}

func TestExtractor_FromAPI_MissingTimestamp(t *testing.T) {
	e := NewExtractor(testOrigin)
	_, err := e.FromAPI("test", APIPost{
		ID:        "abc",
		Title:     "Hello",
		Permalink: "/r/test/comments/abc/hello",
	}, time.Now().UTC())
	assert.Error(t, err)
}

func TestFlexScore_UnmarshalJSON(t *testing.T) {
	var p APIPost
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","score":417}`), &p))
	assert.Equal(t, FlexScore("417"), p.Score)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","score":"1.2k"}`), &p))
	assert.Equal(t, FlexScore("1.2k"), p.Score)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","score":null}`), &p))
	assert.Equal(t, FlexScore(""), p.Score)
}

func TestWithinAge(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	horizon := 4

	tests := []struct {
		name      string
		createdAt time.Time
		want      bool
	}{
		{"fresh", now.Add(-time.Hour), true},
		{"exactly at horizon", now.Add(-4 * time.Hour), true},
		{"one second past horizon", now.Add(-4*time.Hour - time.Second), false},
		{"ancient", now.Add(-48 * time.Hour), false},
		{"future timestamp kept", now.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinAge(tt.createdAt, now, horizon))
		})
	}
}
