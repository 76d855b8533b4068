package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadwatch/internal/events"
	"threadwatch/internal/models"
)

func TestNewPublisher_RequiresClient(t *testing.T) {
	pub := events.NewPublisher(nil, nil)
	assert.Nil(t, pub, "expected nil publisher when client is nil")
}

func TestPublisher_Publish_NilReceiverIsNoOp(t *testing.T) {
	var pub *events.Publisher
	event := events.PostEvent{
		EventType: events.PostDiscovered,
		Channel:   "Outdoors",
		PostID:    "1p1n96a",
	}

	err := pub.Publish(context.Background(), event)
	require.NoError(t, err)
}

func TestPublisher_PublishAsync_NilReceiverIsNoOp(t *testing.T) {
	var pub *events.Publisher

	// Should not panic.
	pub.PublishAsync(events.PostEvent{EventType: events.PostCommented})
	time.Sleep(10 * time.Millisecond)
}

func TestNewPostEvent(t *testing.T) {
	post := &models.Post{
		Channel: "Outdoors",
		PostID:  "1p1n96a",
		URL:     "https://www.reddit.com/r/Outdoors/comments/1p1n96a/x/",
		Title:   "Morning on the ridge",
	}

	event := events.NewPostEvent(events.PostDiscovered, post)
	assert.Equal(t, events.PostDiscovered, event.EventType)
	assert.Equal(t, post.PostID, event.PostID)
	assert.Equal(t, post.URL, event.URL)
	assert.Equal(t, post.Title, event.Title)
}
