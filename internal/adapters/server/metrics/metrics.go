// Package metrics exposes tracker state as Prometheus gauges for the serve surface.
package metrics

import (
	"net/http"

	"github.com/hylla/timebox/internal/adapters/report"
	"github.com/hylla/timebox/internal/adapters/server/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timebox"

// Collector reads the tracker on every scrape.
type Collector struct {
	tracker common.Tracker

	activities  *prometheus.Desc
	remaining   *prometheus.Desc
	estimated   *prometheus.Desc
	actual      *prometheus.Desc
	averageDiff *prometheus.Desc
	outcomes    *prometheus.Desc
	saveFailed  *prometheus.Desc
}

// NewCollector builds a collector over tracker.
func NewCollector(tracker common.Tracker) *Collector {
	return &Collector{
		tracker: tracker,
		activities: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "activities"),
			"Recorded activities by status.",
			[]string{"status"}, nil,
		),
		remaining: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "active", "remaining_seconds"),
			"Countdown of the activity in progress; negative in overtime.",
			nil, nil,
		),
		estimated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "completed", "estimated_minutes"),
			"Sum of estimates over measured completed activities.",
			nil, nil,
		),
		actual: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "completed", "actual_minutes"),
			"Sum of actual minutes over measured completed activities.",
			nil, nil,
		),
		averageDiff: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "completed", "average_difference_percent"),
			"Mean estimate error in percent over measured completed activities.",
			nil, nil,
		),
		outcomes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "completed", "outcomes"),
			"Measured completed activities by estimate outcome.",
			[]string{"outcome"}, nil,
		),
		saveFailed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "persistence", "last_save_failed"),
			"1 when the most recent save failed.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activities
	ch <- c.remaining
	ch <- c.estimated
	ch <- c.actual
	ch <- c.averageDiff
	ch <- c.outcomes
	ch <- c.saveFailed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	summary := report.Summarize(c.tracker.Snapshot())
	ch <- prometheus.MustNewConstMetric(c.activities, prometheus.GaugeValue, float64(summary.InProgress), "in-progress")
	ch <- prometheus.MustNewConstMetric(c.activities, prometheus.GaugeValue, float64(summary.Completed), "completed")
	if a, ok := c.tracker.Active(); ok {
		ch <- prometheus.MustNewConstMetric(c.remaining, prometheus.GaugeValue, float64(a.RemainingSeconds))
	}
	ch <- prometheus.MustNewConstMetric(c.estimated, prometheus.GaugeValue, summary.EstimatedMinutes)
	ch <- prometheus.MustNewConstMetric(c.actual, prometheus.GaugeValue, summary.ActualMinutes)
	ch <- prometheus.MustNewConstMetric(c.averageDiff, prometheus.GaugeValue, summary.AverageDiff)
	ch <- prometheus.MustNewConstMetric(c.outcomes, prometheus.GaugeValue, float64(summary.Over), "over")
	ch <- prometheus.MustNewConstMetric(c.outcomes, prometheus.GaugeValue, float64(summary.Under), "under")
	ch <- prometheus.MustNewConstMetric(c.outcomes, prometheus.GaugeValue, float64(summary.OnTarget), "on_target")
	failed := 0.0
	if c.tracker.LastSaveError() != nil {
		failed = 1
	}
	ch <- prometheus.MustNewConstMetric(c.saveFailed, prometheus.GaugeValue, failed)
}

// Handler returns a scrape handler over a private registry holding the tracker collector plus the
// Go runtime and process collectors.
func Handler(tracker common.Tracker) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewCollector(tracker)); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
