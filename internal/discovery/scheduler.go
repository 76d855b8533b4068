// Package discovery runs the source rotation loop: every cycle it polls a
// randomized batch of channels, normalizes their listings and stores new
// posts. Randomized batch sizes, per-channel cooldowns and cycle delays keep
// the polling pattern irregular on purpose.
package discovery

import (
	"context"
	"math/rand"
	"time"

	"threadwatch/internal/config"
	"threadwatch/internal/events"
	"threadwatch/internal/extract"
	"threadwatch/internal/logger"
	"threadwatch/internal/metrics"
	"threadwatch/internal/models"
)

// Lister fetches channel listings and metadata. Implemented by source.Client.
type Lister interface {
	FetchPosts(ctx context.Context, channel string, now time.Time) ([]*models.Post, int, error)
	FetchDescription(ctx context.Context, channel string) (string, error)
}

// PostStore persists discovered posts.
type PostStore interface {
	Insert(ctx context.Context, post *models.Post) (bool, error)
}

// ChannelStore persists channel metadata.
type ChannelStore interface {
	UpsertDescription(ctx context.Context, name, description string) error
}

// Scheduler drives the discovery loop.
type Scheduler struct {
	cfg       config.DiscoveryConfig
	lister    Lister
	posts     PostStore
	channels  ChannelStore
	publisher *events.Publisher
	metrics   *metrics.Metrics
	logger    logger.Logger
	rand      *rand.Rand
	now       func() time.Time
}

// NewScheduler wires a discovery scheduler. The publisher may be nil, all
// other collaborators are required.
func NewScheduler(
	cfg config.DiscoveryConfig,
	lister Lister,
	posts PostStore,
	channels ChannelStore,
	publisher *events.Publisher,
	m *metrics.Metrics,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		lister:    lister,
		posts:     posts,
		channels:  channels,
		publisher: publisher,
		metrics:   m,
		logger:    log,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter, not crypto
		now:       time.Now,
	}
}

// Run executes discovery cycles until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting discovery scheduler",
		logger.Int("channels", len(s.cfg.Channels)),
	)

	for {
		if len(s.cfg.Channels) == 0 {
			backoff := s.randDuration(s.cfg.EmptyBackoffMin, s.cfg.EmptyBackoffMax)
			s.logger.Warn("No channels configured, backing off",
				logger.Duration("backoff", backoff),
			)
			if !s.sleep(ctx, backoff) {
				return ctx.Err()
			}
			continue
		}

		batch := s.selectBatch()
		s.logger.Info("Starting discovery cycle",
			logger.Int("batch_size", len(batch)),
			logger.Strings("channels", batch),
		)

		start := time.Now()
		for _, channel := range batch {
			s.pollChannel(ctx, channel)

			cooldown := s.randDuration(s.cfg.CooldownMin, s.cfg.CooldownMax)
			if !s.sleep(ctx, cooldown) {
				return ctx.Err()
			}
		}
		s.metrics.CycleDuration.Observe(time.Since(start).Seconds())

		delay := s.randDuration(s.cfg.CycleDelayMin, s.cfg.CycleDelayMax)
		s.logger.Info("Discovery cycle finished",
			logger.Duration("next_cycle_in", delay),
		)
		if !s.sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

// selectBatch picks this cycle's channels: a random batch size within the
// configured bounds, capped at the channel count, sampled without
// replacement in random order.
func (s *Scheduler) selectBatch() []string {
	size := s.cfg.BatchMin
	if s.cfg.BatchMax > s.cfg.BatchMin {
		size += s.rand.Intn(s.cfg.BatchMax - s.cfg.BatchMin + 1)
	}
	if size > len(s.cfg.Channels) {
		size = len(s.cfg.Channels)
	}

	batch := make([]string, 0, size)
	for _, i := range s.rand.Perm(len(s.cfg.Channels))[:size] {
		batch = append(batch, s.cfg.Channels[i])
	}
	return batch
}

// pollChannel fetches and stores one channel's listing. Failures are logged
// and counted, never propagated: one broken channel must not stop the cycle.
func (s *Scheduler) pollChannel(ctx context.Context, channel string) {
	log := s.logger.With(logger.String("channel", channel))

	if desc, err := s.lister.FetchDescription(ctx, channel); err != nil {
		log.Warn("Failed to fetch channel description", logger.Error(err))
	} else if desc != "" {
		if err := s.channels.UpsertDescription(ctx, channel, desc); err != nil {
			log.Warn("Failed to store channel description", logger.Error(err))
		}
	}

	now := s.now().UTC()
	posts, skipped, err := s.lister.FetchPosts(ctx, channel, now)
	if err != nil {
		s.metrics.ChannelFetchErrors.WithLabelValues(channel).Inc()
		log.Error("Failed to fetch channel listing", logger.Error(err))
		return
	}
	if skipped > 0 {
		s.metrics.ExtractionFailures.WithLabelValues(channel).Add(float64(skipped))
	}

	stored := 0
	for _, post := range posts {
		if !extract.WithinAge(post.CreatedAt, now, s.cfg.MaxAgeHours) {
			s.metrics.PostsStale.WithLabelValues(channel).Inc()
			continue
		}

		created, insertErr := s.posts.Insert(ctx, post)
		if insertErr != nil {
			log.Error("Failed to store post",
				logger.String("post_id", post.PostID),
				logger.Error(insertErr),
			)
			continue
		}

		if created {
			s.metrics.PostsDiscovered.WithLabelValues(channel).Inc()
			s.publisher.PublishAsync(events.NewPostEvent(events.PostDiscovered, post))
			stored++
		} else {
			s.metrics.PostsDuplicate.WithLabelValues(channel).Inc()
		}
	}

	log.Info("Channel polled",
		logger.Int("listed", len(posts)),
		logger.Int("stored", stored),
		logger.Int("skipped", skipped),
	)
}

func (s *Scheduler) randDuration(minD, maxD time.Duration) time.Duration {
	if maxD <= minD {
		return minD
	}
	return minD + time.Duration(s.rand.Int63n(int64(maxD-minD)+1))
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
