// Package commenter consumes the claim queue: it leases batches of
// uncommented posts, generates a comment for each and acknowledges the
// outcome. Failed posts go straight back to the queue; the only terminal
// state is a successful comment.
package commenter

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"threadwatch/internal/config"
	"threadwatch/internal/events"
	"threadwatch/internal/logger"
	"threadwatch/internal/metrics"
	"threadwatch/internal/models"
	"threadwatch/internal/repository"
)

// Queue is the claim side of the post repository.
type Queue interface {
	ClaimBatch(ctx context.Context, limit, maxAgeHours int, leaseTTL time.Duration) (*repository.Claim, error)
	AckSuccess(ctx context.Context, id int64, token uuid.UUID) error
	AckFailure(ctx context.Context, id int64, token uuid.UUID, reason string) error
}

// Runner drives the consumer loop.
type Runner struct {
	cfg       config.ConsumerConfig
	queue     Queue
	generator Generator
	actor     Actor
	publisher *events.Publisher
	metrics   *metrics.Metrics
	logger    logger.Logger
	rand      *rand.Rand
	now       func() time.Time
}

// NewRunner wires a consumer runner. The publisher may be nil.
func NewRunner(
	cfg config.ConsumerConfig,
	queue Queue,
	generator Generator,
	actor Actor,
	publisher *events.Publisher,
	m *metrics.Metrics,
	log logger.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		queue:     queue,
		generator: generator,
		actor:     actor,
		publisher: publisher,
		metrics:   m,
		logger:    log,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter, not crypto
		now:       time.Now,
	}
}

// Run executes consumer batches until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting consumer runner",
		logger.Int("claim_limit", r.cfg.ClaimLimit),
		logger.Duration("run_interval", r.cfg.RunInterval),
	)

	for {
		if err := r.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.logger.Error("Consumer batch failed", logger.Error(err))
		}

		if !r.sleep(ctx, r.cfg.RunInterval) {
			return ctx.Err()
		}
	}
}

// RunOnce claims one batch and works through it. Per-post failures are acked
// back to the queue and never abort the batch.
func (r *Runner) RunOnce(ctx context.Context) error {
	claim, err := r.queue.ClaimBatch(ctx, r.cfg.ClaimLimit, r.cfg.MaxAgeHours, r.cfg.LeaseTTL)
	if err != nil {
		return err
	}

	if len(claim.Posts) == 0 {
		r.logger.Info("No posts to comment on")
		return nil
	}

	r.metrics.PostsClaimed.Add(float64(len(claim.Posts)))
	r.logger.Info("Claimed batch",
		logger.Int("posts", len(claim.Posts)),
		logger.String("claim_token", claim.Token.String()),
	)

	succeeded := 0
	for i, post := range claim.Posts {
		if r.processPost(ctx, post.ID, claim.Token, post) {
			succeeded++
		}

		if i < len(claim.Posts)-1 {
			delay := r.randDuration(r.cfg.ItemDelayMin, r.cfg.ItemDelayMax)
			if !r.sleep(ctx, delay) {
				return ctx.Err()
			}
		}
	}

	r.logger.Info("Batch finished",
		logger.Int("succeeded", succeeded),
		logger.Int("failed", len(claim.Posts)-succeeded),
	)
	return nil
}

func (r *Runner) processPost(ctx context.Context, id int64, token uuid.UUID, post *models.Post) bool {
	log := r.logger.With(
		logger.String("channel", post.Channel),
		logger.String("post_id", post.PostID),
	)

	text, err := r.generator.Generate(ctx, post)
	if err != nil {
		log.Error("Failed to generate comment", logger.Error(err))
		r.ackFailure(ctx, id, token, "generate comment: "+err.Error(), log)
		return false
	}

	if err := r.actor.Comment(ctx, post, text); err != nil {
		log.Warn("Comment attempt failed", logger.Error(err))
		r.ackFailure(ctx, id, token, err.Error(), log)
		return false
	}

	if err := r.queue.AckSuccess(ctx, id, token); err != nil {
		if errors.Is(err, repository.ErrLeaseLost) {
			r.metrics.LeasesLost.Inc()
			log.Warn("Lease lost before ack, dropping outcome")
			return false
		}
		log.Error("Failed to ack success", logger.Error(err))
		return false
	}

	r.metrics.AckSuccess.Inc()
	r.metrics.CommentLag.Observe(r.now().UTC().Sub(post.CreatedAt).Seconds())
	r.publisher.PublishAsync(events.NewPostEvent(events.PostCommented, post))
	log.Info("Commented on post")
	return true
}

func (r *Runner) ackFailure(ctx context.Context, id int64, token uuid.UUID, reason string, log logger.Logger) {
	if err := r.queue.AckFailure(ctx, id, token, reason); err != nil {
		if errors.Is(err, repository.ErrLeaseLost) {
			r.metrics.LeasesLost.Inc()
			log.Warn("Lease lost before ack, dropping outcome")
			return
		}
		log.Error("Failed to ack failure", logger.Error(err))
		return
	}
	r.metrics.AckFailure.Inc()
}

func (r *Runner) randDuration(minD, maxD time.Duration) time.Duration {
	if maxD <= minD {
		return minD
	}
	return minD + time.Duration(r.rand.Int63n(int64(maxD-minD)+1))
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
