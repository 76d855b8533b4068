// Package repository implements the persistent store shared by the discovery
// and consumer processes: idempotent post insertion, channel metadata upserts,
// and the lease-based claim queue.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"threadwatch/internal/logger"
	"threadwatch/internal/models"
)

// ErrLeaseLost is returned by acks whose claim token no longer matches: the
// lease expired and another claimer took the record. Callers should check
// with errors.Is and drop the outcome.
var ErrLeaseLost = errors.New("claim lease lost")

// PostRepository handles database operations for discovered posts and the
// comment queue built on top of them.
type PostRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostRepository(db *sql.DB, log logger.Logger) *PostRepository {
	return &PostRepository{
		db:     db,
		logger: log,
	}
}

// Insert persists a post if its content ID has not been seen before. Returns
// whether a new row was created. A duplicate is a no-op, never an error, and
// the existing row (including its original seen_at and commented state) is
// left untouched; concurrent writers on the same post_id resolve to exactly
// one row with the loser performing a no-op.
func (r *PostRepository) Insert(ctx context.Context, post *models.Post) (bool, error) {
	query := `
		INSERT INTO posts (channel, post_id, url, title, score, created_at, seen_at, commented)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), FALSE)
		ON CONFLICT (post_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx,
		query,
		post.Channel,
		post.PostID,
		post.URL,
		post.Title,
		post.Score,
		post.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rows == 1, nil
}

// Claim holds one claimed batch: the selected posts plus the lease token the
// consumer must present when acking.
type Claim struct {
	Token uuid.UUID
	Posts []*models.Post
}

// ClaimBatch selects up to limit records that are uncommented, unleased (or
// whose lease expired) and created within maxAgeHours, newest seen_at first —
// freshness over strict queue order. The selected rows are stamped with a new
// claim token and visibility timeout in the same transaction, so concurrent
// claimers cannot double-claim inside a lease window.
func (r *PostRepository) ClaimBatch(
	ctx context.Context,
	limit int,
	maxAgeHours int,
	leaseTTL time.Duration,
) (*Claim, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
		SELECT id, channel, post_id, url, title, score, created_at, seen_at,
		       commented, attempts, last_error
		FROM posts
		WHERE commented = FALSE
		  AND (lease_expires_at IS NULL OR lease_expires_at < NOW())
		  AND created_at > NOW() - ($1 * INTERVAL '1 hour')
		ORDER BY seen_at DESC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.QueryContext(ctx, query, maxAgeHours, limit)
	if err != nil {
		return nil, fmt.Errorf("select claimable posts: %w", err)
	}

	posts, scanErr := scanPostRows(rows)
	if scanErr != nil {
		return nil, scanErr
	}

	claim := &Claim{
		Token: uuid.New(),
		Posts: posts,
	}

	if len(posts) > 0 {
		ids := make([]int64, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}

		lease := `
			UPDATE posts
			SET claim_token = $1,
			    lease_expires_at = NOW() + ($2 * INTERVAL '1 second')
			WHERE id = ANY($3)
		`
		if _, leaseErr := tx.ExecContext(ctx, lease, claim.Token, leaseTTL.Seconds(), pq.Array(ids)); leaseErr != nil {
			return nil, fmt.Errorf("lease claimed posts: %w", leaseErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, fmt.Errorf("commit claim transaction: %w", commitErr)
	}

	return claim, nil
}

// AckSuccess marks a claimed post as commented and releases its lease.
// Terminal for that record.
func (r *PostRepository) AckSuccess(ctx context.Context, id int64, token uuid.UUID) error {
	query := `
		UPDATE posts
		SET commented = TRUE,
		    claim_token = NULL,
		    lease_expires_at = NULL
		WHERE id = $1 AND claim_token = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("ack success: %w", err)
	}
	return requireClaimedRow(result)
}

// AckFailure releases the lease and keeps the record eligible for the very
// next claim call. There is no backoff and no poison state; attempts and
// last_error are recorded for observability only.
func (r *PostRepository) AckFailure(ctx context.Context, id int64, token uuid.UUID, reason string) error {
	query := `
		UPDATE posts
		SET commented = FALSE,
		    attempts = attempts + 1,
		    last_error = $3,
		    claim_token = NULL,
		    lease_expires_at = NULL
		WHERE id = $1 AND claim_token = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, token, reason)
	if err != nil {
		return fmt.Errorf("ack failure: %w", err)
	}
	return requireClaimedRow(result)
}

// Stats returns queue totals for the status API.
func (r *PostRepository) Stats(ctx context.Context) (*models.QueueStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE commented = FALSE AND (lease_expires_at IS NULL OR lease_expires_at < NOW())),
		       COUNT(*) FILTER (WHERE commented = FALSE AND lease_expires_at >= NOW()),
		       COUNT(*) FILTER (WHERE commented = TRUE)
		FROM posts
	`

	var stats models.QueueStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Leased,
		&stats.Commented,
	)
	if err != nil {
		return nil, fmt.Errorf("query queue stats: %w", err)
	}
	return &stats, nil
}

// ListRecent returns the most recently discovered posts for the status API.
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	query := `
		SELECT id, channel, post_id, url, title, score, created_at, seen_at,
		       commented, attempts, last_error
		FROM posts
		ORDER BY seen_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent posts: %w", err)
	}
	return scanPostRows(rows)
}

func scanPostRows(rows *sql.Rows) ([]*models.Post, error) {
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(
			&post.ID,
			&post.Channel,
			&post.PostID,
			&post.URL,
			&post.Title,
			&post.Score,
			&post.CreatedAt,
			&post.SeenAt,
			&post.Commented,
			&post.Attempts,
			&post.LastError,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, &post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func requireClaimedRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrLeaseLost
	}
	return nil
}
