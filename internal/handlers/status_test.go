package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadwatch/internal/handlers"
	"threadwatch/internal/logger"
	"threadwatch/internal/repository"
)

func setupHandler(t *testing.T) (*handlers.StatusHandler, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	return handlers.NewStatusHandler(
		repository.NewPostRepository(db, log),
		repository.NewChannelRepository(db, log),
		log,
	), mock
}

func performRequest(handler gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	router.ServeHTTP(w, req)
	return w
}

func TestQueueStats(t *testing.T) {
	handler, mock := setupHandler(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "leased", "commented"}).
			AddRow(12, 5, 2, 5))

	w := performRequest(handler.QueueStats, "/test")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 12, body["total"])
	assert.Equal(t, 5, body["pending"])
}

func TestListChannels(t *testing.T) {
	handler, mock := setupHandler(t)

	mock.ExpectQuery("SELECT name, description, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"name", "description", "updated_at"}).
			AddRow("Outdoors", "A place for the outdoors", time.Now()))

	w := performRequest(handler.ListChannels, "/test")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Outdoors")
}

func TestRecentPosts_InvalidLimit(t *testing.T) {
	handler, _ := setupHandler(t)

	for _, limit := range []string{"0", "-1", "abc", "1000"} {
		w := performRequest(handler.RecentPosts, "/test?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestRecentPosts(t *testing.T) {
	handler, mock := setupHandler(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, channel, post_id").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "channel", "post_id", "url", "title", "score",
			"created_at", "seen_at", "commented", "attempts", "last_error",
		}).AddRow(1, "Outdoors", "1p1n96a", "https://example.com", "t", 3,
			now.Add(-time.Hour), now, false, 0, nil))

	w := performRequest(handler.RecentPosts, "/test")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1p1n96a")
}
