package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadwatch/internal/logger"
	"threadwatch/internal/models"
)

func newMockRepo(t *testing.T) (*PostRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostRepository(db, logger.NewNop()), mock
}

func testPost() *models.Post {
	return &models.Post{
		Channel:   "Outdoors",
		PostID:    "1p1n96a",
		URL:       "https://www.reddit.com/r/Outdoors/comments/1p1n96a/x/",
		Title:     "Morning on the ridge",
		Score:     1500,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
}

func TestPostRepository_Insert_NewRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	post := testPost()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts")).
		WithArgs(post.Channel, post.PostID, post.URL, post.Title, post.Score, post.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.Insert(context.Background(), post)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Insert_DuplicateIsNoOp(t *testing.T) {
	repo, mock := newMockRepo(t)
	post := testPost()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts")).
		WithArgs(post.Channel, post.PostID, post.URL, post.Title, post.Score, post.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Insert(context.Background(), post)
	require.NoError(t, err)
	assert.False(t, created, "duplicate insert must be a no-op, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func postRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "channel", "post_id", "url", "title", "score",
		"created_at", "seen_at", "commented", "attempts", "last_error",
	})
	now := time.Now().UTC()
	for _, id := range ids {
		rows.AddRow(id, "Outdoors", uuid.NewString(), "https://example.com", "t", 1,
			now.Add(-time.Hour), now, false, 0, nil)
	}
	return rows
}

func TestPostRepository_ClaimBatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, channel, post_id").
		WithArgs(24, 10).
		WillReturnRows(postRows(3, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	claim, err := repo.ClaimBatch(context.Background(), 10, 24, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, claim.Posts, 2)
	assert.NotEqual(t, uuid.Nil, claim.Token)
	assert.Equal(t, int64(3), claim.Posts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ClaimBatch_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, channel, post_id").
		WithArgs(24, 10).
		WillReturnRows(postRows())
	mock.ExpectCommit()

	claim, err := repo.ClaimBatch(context.Background(), 10, 24, 15*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, claim.Posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_AckSuccess(t *testing.T) {
	repo, mock := newMockRepo(t)
	token := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts")).
		WithArgs(int64(7), token).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AckSuccess(context.Background(), 7, token)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_AckSuccess_LeaseLost(t *testing.T) {
	repo, mock := newMockRepo(t)
	token := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts")).
		WithArgs(int64(7), token).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AckSuccess(context.Background(), 7, token)
	assert.ErrorIs(t, err, ErrLeaseLost)
}

func TestPostRepository_AckFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	token := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts")).
		WithArgs(int64(9), token, "composer did not open").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AckFailure(context.Background(), 9, token, "composer did not open")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Stats(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "leased", "commented"}).
			AddRow(10, 4, 1, 5))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.QueueStats{Total: 10, Pending: 4, Leased: 1, Commented: 5}, stats)
}
