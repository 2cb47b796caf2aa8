package launchloop

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks launch-loop activity for scraping by Prometheus.
type Metrics struct {
	triggersLaunched prometheus.Counter
	triggersSpurious prometheus.Counter
	triggersFailed   prometheus.Counter
	pollDuration     prometheus.Histogram
}

// NewMetrics registers the launch loop's counters against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		triggersLaunched: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapback2_loop_triggers_launched_total",
			Help: "Number of trigger files successfully claimed and launched.",
		}),
		triggersSpurious: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapback2_loop_triggers_spurious_total",
			Help: "Number of trigger filenames rejected for containing disallowed characters.",
		}),
		triggersFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapback2_loop_triggers_failed_total",
			Help: "Number of launched engine invocations that exited non-zero.",
		}),
		pollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "snapback2_loop_poll_duration_seconds",
			Help: "Time taken to process one full pass over the trigger directory.",
		}),
	}
}

// Handler returns an HTTP handler suitable for mounting at /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
