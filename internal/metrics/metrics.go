// Package metrics holds Prometheus instruments that are used across the
// container.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScopedBeans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portlet_scoped_beans",
			Help: "Number of render-state-scoped beans bound at activation.",
		})

	ResponseCloseTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portlet_response_close_total",
			Help: "Cumulative number of window responses closed and merged.",
		})

	ResponseReleaseUnmergedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portlet_response_release_unmerged_total",
			Help: "Cumulative number of window responses released before close.",
		})

	URLMergeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portlet_url_merge_total",
			Help: "Cumulative number of window deltas merged into a portal URL.",
		})

	FilterVetoTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portlet_filter_veto_total",
			Help: "Cumulative number of parameter changes vetoed by the filter.",
		}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(
		ScopedBeans,
		ResponseCloseTotal,
		ResponseReleaseUnmergedTotal,
		URLMergeTotal,
		FilterVetoTotal,
	)
}
