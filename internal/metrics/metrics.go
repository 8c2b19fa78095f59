package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the request counters.
const (
	OutcomeOK          = "ok"
	OutcomeServerError = "server_error"
	OutcomeTransport   = "transport_error"
	OutcomeCancelled   = "cancelled"
)

// Metrics collects client-side counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	detections    *prometheus.CounterVec
	saves         *prometheus.CounterVec
	deletes       *prometheus.CounterVec
	facesDetected prometheus.Counter
	skippedTicks  prometheus.Counter
	latency       *prometheus.HistogramVec

	streamActive atomic.Bool
	lastFaces    atomic.Int64
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goober_detections_total",
			Help: "Detection requests by outcome",
		}, []string{"outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goober_saves_total",
			Help: "Save requests by outcome",
		}, []string{"outcome"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goober_deletes_total",
			Help: "Delete attempts by outcome",
		}, []string{"outcome"}),
		facesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goober_faces_detected_total",
			Help: "Sum of faces reported by successful detections",
		}),
		skippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goober_detection_ticks_skipped_total",
			Help: "Detection ticks skipped because a request was still in flight",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goober_request_duration_seconds",
			Help:    "Photo service request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	m.registry.MustRegister(m.detections, m.saves, m.deletes, m.facesDetected, m.skippedTicks, m.latency)
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "goober_stream_active",
			Help: "1 while a camera stream is held",
		},
		func() float64 {
			if m.streamActive.Load() {
				return 1
			}
			return 0
		},
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "goober_last_face_count",
			Help: "Face count of the most recent successful detection",
		},
		func() float64 { return float64(m.lastFaces.Load()) },
	))
	return m
}

func (m *Metrics) ObserveDetection(outcome string, faces int, d time.Duration) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(outcome).Inc()
	m.latency.WithLabelValues("detect_faces").Observe(d.Seconds())
	if outcome == OutcomeOK {
		m.facesDetected.Add(float64(faces))
		m.lastFaces.Store(int64(faces))
	}
}

func (m *Metrics) ObserveSave(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(outcome).Inc()
	m.latency.WithLabelValues("save_photo").Observe(d.Seconds())
}

func (m *Metrics) ObserveDelete(outcome string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SkipTick() {
	if m == nil {
		return
	}
	m.skippedTicks.Inc()
}

func (m *Metrics) SetStreamActive(active bool) {
	if m == nil {
		return
	}
	m.streamActive.Store(active)
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
