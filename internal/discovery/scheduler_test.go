package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadwatch/internal/config"
	"threadwatch/internal/logger"
	"threadwatch/internal/metrics"
	"threadwatch/internal/models"
)

type fakeLister struct {
	posts       []*models.Post
	skipped     int
	listErr     error
	description string
	descErr     error
	fetched     []string
}

func (f *fakeLister) FetchPosts(_ context.Context, channel string, _ time.Time) ([]*models.Post, int, error) {
	f.fetched = append(f.fetched, channel)
	return f.posts, f.skipped, f.listErr
}

func (f *fakeLister) FetchDescription(context.Context, string) (string, error) {
	return f.description, f.descErr
}

type fakePostStore struct {
	inserted []*models.Post
	existing map[string]bool
	err      error
}

func (f *fakePostStore) Insert(_ context.Context, post *models.Post) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.existing[post.PostID] {
		return false, nil
	}
	f.inserted = append(f.inserted, post)
	return true, nil
}

type fakeChannelStore struct {
	upserts map[string]string
}

func (f *fakeChannelStore) UpsertDescription(_ context.Context, name, description string) error {
	if f.upserts == nil {
		f.upserts = map[string]string{}
	}
	f.upserts[name] = description
	return nil
}

func newTestScheduler(cfg config.DiscoveryConfig, lister *fakeLister, posts *fakePostStore) *Scheduler {
	return NewScheduler(cfg, lister, posts, &fakeChannelStore{}, nil, metrics.New(), logger.NewNop())
}

func TestSelectBatch_CappedAtChannelCount(t *testing.T) {
	cfg := config.DiscoveryConfig{
		Channels: []string{"a", "b", "c", "d", "e", "f"},
		BatchMin: 13,
		BatchMax: 31,
	}
	s := newTestScheduler(cfg, &fakeLister{}, &fakePostStore{})

	for i := 0; i < 1000; i++ {
		batch := s.selectBatch()
		require.Len(t, batch, len(cfg.Channels))

		seen := map[string]bool{}
		for _, ch := range batch {
			assert.False(t, seen[ch], "channel %q selected twice", ch)
			seen[ch] = true
		}
	}
}

func TestSelectBatch_SizeWithinBounds(t *testing.T) {
	cfg := config.DiscoveryConfig{
		Channels: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		BatchMin: 1,
		BatchMax: 3,
	}
	s := newTestScheduler(cfg, &fakeLister{}, &fakePostStore{})

	for i := 0; i < 1000; i++ {
		batch := s.selectBatch()
		assert.GreaterOrEqual(t, len(batch), 1)
		assert.LessOrEqual(t, len(batch), 3)
	}
}

func TestPollChannel_StoresFreshPosts(t *testing.T) {
	now := time.Now().UTC()
	lister := &fakeLister{
		description: "A place for the outdoors",
		posts: []*models.Post{
			{PostID: "fresh", CreatedAt: now.Add(-time.Hour)},
			{PostID: "stale", CreatedAt: now.Add(-10 * time.Hour)},
			{PostID: "dup", CreatedAt: now.Add(-time.Hour)},
		},
	}
	posts := &fakePostStore{existing: map[string]bool{"dup": true}}
	channels := &fakeChannelStore{}

	cfg := config.DiscoveryConfig{MaxAgeHours: 4}
	s := NewScheduler(cfg, lister, posts, channels, nil, metrics.New(), logger.NewNop())
	s.pollChannel(context.Background(), "Outdoors")

	require.Len(t, posts.inserted, 1, "stale and duplicate posts must not be stored")
	assert.Equal(t, "fresh", posts.inserted[0].PostID)
	assert.Equal(t, "A place for the outdoors", channels.upserts["Outdoors"])
}

func TestPollChannel_ListingErrorIsIsolated(t *testing.T) {
	lister := &fakeLister{listErr: errors.New("upstream down")}
	posts := &fakePostStore{}

	s := newTestScheduler(config.DiscoveryConfig{MaxAgeHours: 4}, lister, posts)

	// Must not panic or propagate; the cycle moves on to the next channel.
	s.pollChannel(context.Background(), "Outdoors")
	assert.Empty(t, posts.inserted)
}

func TestRun_EmptyChannelsBacksOffUntilCanceled(t *testing.T) {
	cfg := config.DiscoveryConfig{
		EmptyBackoffMin: time.Millisecond,
		EmptyBackoffMax: 2 * time.Millisecond,
	}
	s := newTestScheduler(cfg, &fakeLister{}, &fakePostStore{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_CycleVisitsSelectedChannels(t *testing.T) {
	cfg := config.DiscoveryConfig{
		Channels:      []string{"a", "b"},
		BatchMin:      2,
		BatchMax:      2,
		CooldownMin:   time.Millisecond,
		CooldownMax:   time.Millisecond,
		CycleDelayMin: time.Hour,
		CycleDelayMax: time.Hour,
		MaxAgeHours:   4,
	}
	lister := &fakeLister{}
	s := newTestScheduler(cfg, lister, &fakePostStore{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ElementsMatch(t, []string{"a", "b"}, lister.fetched)
}
