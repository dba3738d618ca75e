package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the overlay service.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         *prometheus.CounterVec
	errorsTotal           prometheus.Counter
	streamsStartedTotal   prometheus.Counter
	launchFailuresTotal   prometheus.Counter
	transcoderExitsTotal  *prometheus.CounterVec
	runningTranscoders    prometheus.Gauge
	overlayOperationTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_http_requests_total",
		Help: "Total number of HTTP requests received, by method",
	}, []string{"method"})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	streamsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_streams_started_total",
		Help: "Total number of transcoder processes started",
	})
	launchFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_stream_launch_failures_total",
		Help: "Total number of transcoder processes that could not be started",
	})
	transcoderExitsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_transcoder_exits_total",
		Help: "Total number of transcoder processes that exited, by outcome",
	}, []string{"outcome"})
	runningTranscoders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "overlay_running_transcoders",
		Help: "Number of transcoder processes started and not yet exited",
	})
	overlayOperationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_operations_total",
		Help: "Total number of successful overlay mutations, by operation",
	}, []string{"operation"})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		streamsStartedTotal,
		launchFailuresTotal,
		transcoderExitsTotal,
		runningTranscoders,
		overlayOperationTotal,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		errorsTotal:           errorsTotal,
		streamsStartedTotal:   streamsStartedTotal,
		launchFailuresTotal:   launchFailuresTotal,
		transcoderExitsTotal:  transcoderExitsTotal,
		runningTranscoders:    runningTranscoders,
		overlayOperationTotal: overlayOperationTotal,
	}
}

// IncRequests increments the request counter for method.
func (m *Metrics) IncRequests(method string) {
	m.requestsTotal.WithLabelValues(method).Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// StreamStarted records a transcoder that started successfully.
func (m *Metrics) StreamStarted() {
	m.streamsStartedTotal.Inc()
	m.runningTranscoders.Inc()
}

// LaunchFailed records a transcoder that could not be started.
func (m *Metrics) LaunchFailed() {
	m.launchFailuresTotal.Inc()
}

// TranscoderExited records a transcoder exit. ok is false when the process
// exited with an error.
func (m *Metrics) TranscoderExited(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.transcoderExitsTotal.WithLabelValues(outcome).Inc()
	m.runningTranscoders.Dec()
}

// IncOverlayOperation increments the overlay mutation counter for op
// ("create", "update", "delete").
func (m *Metrics) IncOverlayOperation(op string) {
	m.overlayOperationTotal.WithLabelValues(op).Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
