package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for campaign runs
const PushJob = "sheetmail"

// Metrics holds the counters of one campaign run. A run is a short-lived
// batch, so they live on a private registry that is pushed once at the end.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	EmailsSent    prometheus.Counter
	EmailsFailed  prometheus.Counter
	RowsSkipped   prometheus.Counter
	RowsFetched   prometheus.Gauge
	RunDuration   prometheus.Gauge
	LastRunStatus *prometheus.GaugeVec
}

// NewMetrics creates and registers the run metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sheetmail_emails_sent_total",
			Help: "Emails delivered during the run",
		}),
		EmailsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sheetmail_emails_failed_total",
			Help: "Emails that could not be delivered during the run",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sheetmail_rows_skipped_total",
			Help: "Rows skipped because the email column was empty",
		}),
		RowsFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sheetmail_rows_fetched",
			Help: "Rows read from the spreadsheet",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sheetmail_run_duration_seconds",
			Help: "Wall time of the run",
		}),
		LastRunStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sheetmail_last_run_status",
			Help: "1 for the outcome of the last run, 0 otherwise",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.EmailsSent,
		m.EmailsFailed,
		m.RowsSkipped,
		m.RowsFetched,
		m.RunDuration,
		m.LastRunStatus,
	)

	return m
}

// RecordSent counts one delivered email
func (m *Metrics) RecordSent() {
	if m == nil {
		return
	}
	m.EmailsSent.Inc()
}

// RecordFailed counts one failed email
func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.EmailsFailed.Inc()
}

// RecordSkipped counts one row without an email address
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.RowsSkipped.Inc()
}

// RecordRows stores the number of rows fetched
func (m *Metrics) RecordRows(n int) {
	if m == nil {
		return
	}
	m.RowsFetched.Set(float64(n))
}

// RecordRun stores the run duration and its outcome ("success", "partial" or "error")
func (m *Metrics) RecordRun(d time.Duration, status string) {
	if m == nil {
		return
	}
	m.RunDuration.Set(d.Seconds())
	m.LastRunStatus.Reset()
	m.LastRunStatus.WithLabelValues(status).Set(1)
}

// Push sends every metric to the Pushgateway at url, grouped by run id
// when one is given. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	if m == nil || url == "" {
		return nil
	}

	pusher := push.New(url, PushJob).Gatherer(m.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
