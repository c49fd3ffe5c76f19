package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the update pipeline.
type Metrics struct {
	Runs           *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	FetchErrors    prometheus.Counter
	Deliveries     *prometheus.CounterVec
	RankStoreErrs  *prometheus.CounterVec
	AirlinesRanked prometheus.Gauge
}

// New registers the collectors on reg under the given namespace.
// Passing a fresh prometheus.NewRegistry() keeps tests isolated.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "The total number of standings update runs",
		}, []string{"trigger", "result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time taken by a complete update run",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "The total number of airlines omitted because their fetch failed",
		}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "The total number of snapshot deliveries per notifier",
		}, []string{"notifier", "result"}),
		RankStoreErrs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_store_errors_total",
			Help:      "The total number of rank store failures",
		}, []string{"op"}),
		AirlinesRanked: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "airlines_ranked",
			Help:      "Number of airlines in the last computed ranking",
		}),
	}
}
