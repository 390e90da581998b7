package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of one draw process.
type Metrics struct {
	registry *prometheus.Registry

	PlatformRequestDuration *prometheus.HistogramVec
	PlatformRequestTotal    *prometheus.CounterVec
	SignalFetchTotal        *prometheus.CounterVec
	SignalSize              *prometheus.GaugeVec
	DrawTotal               *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry:                prometheus.NewRegistry(),
		PlatformRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "platform_request_duration_seconds",
			Help:    "Duration of platform API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		PlatformRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_request_total",
			Help: "Number of platform API requests",
		}, []string{"operation", "status"}),
		SignalFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_fetch_total",
			Help: "Engagement signal fetches by signal and result",
		}, []string{"signal", "result"}),
		SignalSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signal_size",
			Help: "Number of identities in the last fetched signal",
		}, []string{"signal"}),
		DrawTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draw_total",
			Help: "Completed draws by outcome",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.PlatformRequestDuration,
		m.PlatformRequestTotal,
		m.SignalFetchTotal,
		m.SignalSize,
		m.DrawTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePlatformRequest records one API call. A nil receiver is a no-op.
func (m *Metrics) ObservePlatformRequest(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PlatformRequestDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	m.PlatformRequestTotal.WithLabelValues(operation, status).Inc()
}

// ObserveSignal records the result of one signal fetch.
func (m *Metrics) ObserveSignal(signal string, size int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SignalFetchTotal.WithLabelValues(signal, "error").Inc()
		return
	}
	m.SignalFetchTotal.WithLabelValues(signal, "ok").Inc()
	m.SignalSize.WithLabelValues(signal).Set(float64(size))
}

// ObserveDraw records a finished draw. Failed draws use outcome "failed".
func (m *Metrics) ObserveDraw(outcome string) {
	if m == nil {
		return
	}
	m.DrawTotal.WithLabelValues(outcome).Inc()
}
