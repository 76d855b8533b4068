// Package metrics exposes Prometheus instrumentation for the discovery and
// consumer loops.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all threadwatch Prometheus metrics.
type Metrics struct {
	// Discovery metrics
	PostsDiscovered    *prometheus.CounterVec
	PostsDuplicate     *prometheus.CounterVec
	PostsStale         *prometheus.CounterVec
	ExtractionFailures *prometheus.CounterVec
	ChannelFetchErrors *prometheus.CounterVec
	CycleDuration      prometheus.Histogram

	// Consumer metrics
	PostsClaimed prometheus.Counter
	AckSuccess   prometheus.Counter
	AckFailure   prometheus.Counter
	LeasesLost   prometheus.Counter
	CommentLag   prometheus.Histogram
}

var (
	registerOnce sync.Once
	registered   *Metrics
)

// New returns the process-wide metric set, registering it on first use.
func New() *Metrics {
	registerOnce.Do(func() {
		m := &Metrics{}
		initDiscoveryMetrics(m)
		initConsumerMetrics(m)
		registered = m
	})
	return registered
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func initDiscoveryMetrics(m *Metrics) {
	m.PostsDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwatch_posts_discovered_total",
		Help: "New posts stored during discovery",
	}, []string{"channel"})

	m.PostsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwatch_posts_duplicate_total",
		Help: "Posts skipped because their content ID was already stored",
	}, []string{"channel"})

	m.PostsStale = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwatch_posts_stale_total",
		Help: "Posts dropped by the discovery age filter",
	}, []string{"channel"})

	m.ExtractionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwatch_extraction_failures_total",
		Help: "Raw records that could not be normalized into a post",
	}, []string{"channel"})

	m.ChannelFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwatch_channel_fetch_errors_total",
		Help: "Listing fetches that failed for a channel",
	}, []string{"channel"})

	m.CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threadwatch_discovery_cycle_duration_seconds",
		Help:    "Wall time of one discovery pass over the selected batch",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
}

func initConsumerMetrics(m *Metrics) {
	m.PostsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadwatch_posts_claimed_total",
		Help: "Posts handed to the consumer by claim batches",
	})

	m.AckSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadwatch_ack_success_total",
		Help: "Posts acknowledged as commented",
	})

	m.AckFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadwatch_ack_failure_total",
		Help: "Posts released back to the queue after a failed attempt",
	})

	m.LeasesLost = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadwatch_leases_lost_total",
		Help: "Acks rejected because the claim lease had expired",
	})

	m.CommentLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threadwatch_comment_lag_seconds",
		Help:    "Age of a post at the moment it was commented on",
		Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 86400},
	})
}
