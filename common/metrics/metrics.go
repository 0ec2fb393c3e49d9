package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the camera pipelines
type Metrics struct {
	registry *prometheus.Registry

	FramesProcessed *prometheus.CounterVec
	FramesDropped   *prometheus.CounterVec
	PeopleDetected  *prometheus.CounterVec
	FallsDetected   *prometheus.CounterVec
	ActivePipelines prometheus.Gauge
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fallwatch",
			Name:      "frames_processed_total",
			Help:      "Number of frames run through the detection pipeline",
		}, []string{"camera"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fallwatch",
			Name:      "frames_dropped_total",
			Help:      "Number of annotated frames evicted from a full sink",
		}, []string{"camera"}),
		PeopleDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fallwatch",
			Name:      "people_detected_total",
			Help:      "Cumulative per-frame people counts",
		}, []string{"camera"}),
		FallsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fallwatch",
			Name:      "falls_detected_total",
			Help:      "Number of frames flagged by the fall heuristic",
		}, []string{"camera"}),
		ActivePipelines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fallwatch",
			Name:      "active_pipelines",
			Help:      "Number of camera workers currently running",
		}),
	}

	m.registry.MustRegister(
		m.FramesProcessed,
		m.FramesDropped,
		m.PeopleDetected,
		m.FallsDetected,
		m.ActivePipelines,
	)

	return m
}

// Handler returns an HTTP handler serving the registry in prometheus format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CameraLabel converts a camera id to its metric label value
func CameraLabel(cameraID int) string {
	return strconv.Itoa(cameraID)
}
