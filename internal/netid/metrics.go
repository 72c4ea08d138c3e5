package netid

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "netid"

// Metrics bundles every Prometheus collector NIM exports. Grounded on the
// original's `cheat_stats_*` diagnostic running averages — which existed
// purely to watch the reckoner's own heuristics from outside — reimagined as
// first-class Prometheus series instead of ad hoc TrivialRunningAverage
// fields (see SUPPLEMENTED FEATURES).
type Metrics struct {
	SecretPingAttempts   prometheus.Counter
	SecretPingSuccesses  prometheus.Counter
	SecretPingRejections prometheus.Counter
	SecretPingTimeouts   prometheus.Counter

	ProbeVolleyDuration prometheus.Histogram
	ReckonDuration      prometheus.Histogram

	ConnectednessBest  prometheus.Summary
	SetwiseAverageBest prometheus.Summary

	Groups       prometheus.Gauge
	OurNetworkID prometheus.Gauge

	Reassignments prometheus.Counter
	FallOpens     prometheus.Counter
	DregsMerges   prometheus.Counter
}

// NewMetrics constructs and registers every collector against reg. Passing
// a prometheus.NewRegistry() keeps tests isolated from the global default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SecretPingAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "secret_ping_attempts_total",
			Help:      "Total blockingUpdatePingRecord attempts issued by the prober.",
		}),
		SecretPingSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "secret_ping_successes_total",
			Help:      "Total blockingUpdatePingRecord attempts that ended in a matching SecretPong.",
		}),
		SecretPingRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "secret_ping_rejections_total",
			Help:      "Total RejectedLoop replies received by the prober's client role.",
		}),
		SecretPingTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "secret_ping_timeouts_total",
			Help:      "Total round trips abandoned after their deadline elapsed.",
		}),
		ProbeVolleyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "probe_volley_duration_seconds",
			Help:      "Wall-clock time spent draining one prober tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		ReckonDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "reckon_duration_seconds",
			Help:      "Wall-clock time spent inside one reckoning pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		ConnectednessBest: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  metricsNamespace,
			Name:       "connectedness_best",
			Help:       "connectedness(seed, all) of the seed chosen each reckoning pass.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		SetwiseAverageBest: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  metricsNamespace,
			Name:       "setwise_average_best",
			Help:       "setwiseAverage(seed, others) observed at the start of each extractCluster call.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		Groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "groups",
			Help:      "Number of network groups in the current registry snapshot.",
		}),
		OurNetworkID: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "our_network_id",
			Help:      "The network id this node currently believes it has.",
		}),
		Reassignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reassignments_total",
			Help:      "Total group reassignments performed by the reactor.",
		}),
		FallOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fall_opens_total",
			Help:      "Total extractCluster calls that took the fall-open branch.",
		}),
		DregsMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dregs_merges_total",
			Help:      "Total extractCluster calls that took the combine-the-dregs branch.",
		}),
	}

	reg.MustRegister(
		m.SecretPingAttempts,
		m.SecretPingSuccesses,
		m.SecretPingRejections,
		m.SecretPingTimeouts,
		m.ProbeVolleyDuration,
		m.ReckonDuration,
		m.ConnectednessBest,
		m.SetwiseAverageBest,
		m.Groups,
		m.OurNetworkID,
		m.Reassignments,
		m.FallOpens,
		m.DregsMerges,
	)

	return m
}
