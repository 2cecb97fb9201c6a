// Package metrics exposes Prometheus counters for fact ingestion and
// overstay sweeps.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// factsTotal counts processed facts by camera role and outcome.
	factsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatex_facts_total",
		Help: "Total number of processed facts by role and outcome",
	}, []string{"role", "outcome"})

	// sessionsCreated counts sessions created by the first fact of a batch.
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatex_sessions_created_total",
		Help: "Total number of visitor sessions created",
	})

	// exitsMatched counts sessions closed by a name prefix match.
	exitsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatex_exits_matched_total",
		Help: "Total number of sessions closed by exit matching",
	})

	// closeConflicts counts exit closes lost to a concurrent writer.
	closeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatex_close_conflicts_total",
		Help: "Total number of exit closes that lost the compare-and-set race",
	})

	alertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatex_alerts_sent_total",
		Help: "Total number of overstay alerts delivered",
	})

	alertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatex_alert_failures_total",
		Help: "Total number of overstay alerts that failed to send",
	})

	directoryMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatex_directory_misses_total",
		Help: "Total number of directory lookups without a mapping, by kind",
	}, []string{"kind"})

	sweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatex_overstay_sweeps_total",
		Help: "Total number of overstay sweeps by result",
	}, []string{"result"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gatex_overstay_sweep_duration_seconds",
		Help:    "Overstay sweep duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordFact counts one processed fact.
func RecordFact(role, outcome string) {
	factsTotal.WithLabelValues(role, outcome).Inc()
}

// RecordSessionCreated counts a new session.
func RecordSessionCreated() {
	sessionsCreated.Inc()
}

// RecordExitMatched counts an exit close.
func RecordExitMatched() {
	exitsMatched.Inc()
}

// RecordCloseConflict counts a lost exit close.
func RecordCloseConflict() {
	closeConflicts.Inc()
}

// RecordAlertSent counts a delivered alert.
func RecordAlertSent() {
	alertsSent.Inc()
}

// RecordAlertFailure counts a failed alert.
func RecordAlertFailure() {
	alertFailures.Inc()
}

// RecordDirectoryMiss counts a missing "contact" or "location" mapping.
func RecordDirectoryMiss(kind string) {
	directoryMisses.WithLabelValues(kind).Inc()
}

// RecordSweep counts a finished sweep and observes its duration.
func RecordSweep(result string, seconds float64) {
	sweepsTotal.WithLabelValues(result).Inc()
	sweepDuration.Observe(seconds)
}
