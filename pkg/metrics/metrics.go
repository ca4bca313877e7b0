// Package metrics exports dispatch engine activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Metrics implements tracking.Observer on a Prometheus registry.
type Metrics struct {
	reg *prometheus.Registry

	framesPublished  prometheus.Counter
	framesCoalesced  prometheus.Counter
	lastTimestamp    prometheus.Gauge
	statusChanges    *prometheus.CounterVec
	receptionStatus  prometheus.Gauge
	listenerPanics   *prometheus.CounterVec
	fanOutSeconds    prometheus.Histogram
	listeners        prometheus.Gauge
	listenersReached prometheus.Counter
}

var _ tracking.Observer = (*Metrics)(nil)

// New registers the gaze collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the gaze collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		framesPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "gaze_frames_published_total",
			Help: "Frames published to the latest-frame slot.",
		}),
		framesCoalesced: f.NewCounter(prometheus.CounterOpts{
			Name: "gaze_frames_coalesced_total",
			Help: "Frames superseded before listeners saw them.",
		}),
		lastTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "gaze_last_frame_timestamp_seconds",
			Help: "Tracker timestamp of the latest published frame.",
		}),
		statusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gaze_reception_status_changes_total",
			Help: "Reception status transitions, partitioned by target status.",
		}, []string{"to"}),
		receptionStatus: f.NewGauge(prometheus.GaugeOpts{
			Name: "gaze_reception_status",
			Help: "Current reception status (0 not receiving, 1 receiving, 2 attempting auto-start).",
		}),
		listenerPanics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gaze_listener_panics_total",
			Help: "Recovered listener panics, partitioned by handle.",
		}, []string{"handle"}),
		fanOutSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gaze_fanout_duration_seconds",
			Help:    "Time to deliver one event to every listener.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		listeners: f.NewGauge(prometheus.GaugeOpts{
			Name: "gaze_listeners",
			Help: "Registered listeners.",
		}),
		listenersReached: f.NewCounter(prometheus.CounterOpts{
			Name: "gaze_listener_deliveries_total",
			Help: "Callbacks invoked across all listeners.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) FramePublished(ts tracking.Timestamp) {
	m.framesPublished.Inc()
	m.lastTimestamp.Set(float64(ts))
}

func (m *Metrics) FramesCoalesced(n int) {
	m.framesCoalesced.Add(float64(n))
}

func (m *Metrics) StatusChanged(from, to tracking.ReceptionStatus) {
	m.statusChanges.WithLabelValues(to.String()).Inc()
	m.receptionStatus.Set(float64(to))
}

func (m *Metrics) ListenerPanicked(h tracking.ListenerHandle) {
	m.listenerPanics.WithLabelValues(strconv.FormatUint(uint64(h), 10)).Inc()
}

func (m *Metrics) FanOutCompleted(elapsed time.Duration, listeners int) {
	m.fanOutSeconds.Observe(elapsed.Seconds())
	m.listenersReached.Add(float64(listeners))
}

func (m *Metrics) ListenerCount(n int) {
	m.listeners.Set(float64(n))
}
