package reconcile

import (
	"time"

	"github.com/WessleyAI/dealer-reconcile/pkg/metrics"
)

// Metrics records runner activity. A nil *Metrics is a no-op.
type Metrics struct {
	reg         *metrics.Registry
	lastRun     *metrics.Gauge
	jobDuration *metrics.Histogram
	lookupDur   *metrics.Histogram
}

// NewMetrics registers the runner's metrics on reg.
func NewMetrics(reg *metrics.Registry) *Metrics {
	return &Metrics{
		reg:         reg,
		lastRun:     reg.Gauge("reconcile_last_run_timestamp", "Epoch of last completed run"),
		jobDuration: reg.Histogram("reconcile_job_duration_seconds", "Per-dealership job time", nil),
		lookupDur:   reg.Histogram("reconcile_status_lookup_duration_seconds", "Vehicle status lookup time", nil),
	}
}

func (m *Metrics) job(status string, started time.Time) {
	if m == nil {
		return
	}
	m.reg.Counter(metrics.WithLabels("reconcile_jobs_total", "status", status), "Dealership jobs by outcome").Inc()
	m.jobDuration.Since(started)
}

func (m *Metrics) feedUnavailable(feed string) {
	if m == nil {
		return
	}
	m.reg.Counter(metrics.WithLabels("reconcile_feed_unavailable_total", "feed", feed), "Feed fetches treated as empty").Inc()
}

func (m *Metrics) result(label string) {
	if m == nil {
		return
	}
	m.reg.Counter(metrics.WithLabels("reconcile_results_total", "label", label), "VIN results by label").Inc()
}

func (m *Metrics) lookup(started time.Time) {
	if m == nil {
		return
	}
	m.lookupDur.Since(started)
}

func (m *Metrics) runDone() {
	if m == nil {
		return
	}
	m.lastRun.Set(time.Now().Unix())
}
