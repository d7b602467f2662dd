// Package metrics provides Prometheus metrics for catalog import runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Line outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeSkipped  = "skipped"
)

// Labels are bounded by the layout registry and the run status set.
// Never label by run id or file name.

var (
	// ImportRunsTotal counts finished runs by layout and final status.
	ImportRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filmfolio_import_runs_total",
		Help: "Total number of catalog import runs, by layout and status.",
	}, []string{"layout", "status"})

	// ImportLinesTotal counts data lines by layout and outcome.
	ImportLinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filmfolio_import_lines_total",
		Help: "Total number of catalog data lines processed, by layout and outcome (accepted/skipped).",
	}, []string{"layout", "outcome"})

	// ImportRunDuration observes wall time of a run from gate acquisition to
	// the final status.
	ImportRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filmfolio_import_run_duration_seconds",
		Help:    "Duration of catalog import runs in seconds, by layout.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"layout"})
)

// RecordRun records the outcome of one import run.
// Line counters are only incremented for committed runs, so they track
// rows that actually reached the store plus the lines skipped along the way.
func RecordRun(layout, status string, accepted, skipped int, d time.Duration) {
	ImportRunsTotal.WithLabelValues(layout, status).Inc()
	ImportRunDuration.WithLabelValues(layout).Observe(d.Seconds())

	if status != "committed" {
		return
	}
	if accepted > 0 {
		ImportLinesTotal.WithLabelValues(layout, OutcomeAccepted).Add(float64(accepted))
	}
	if skipped > 0 {
		ImportLinesTotal.WithLabelValues(layout, OutcomeSkipped).Add(float64(skipped))
	}
}
