package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveDetection(OutcomeOK, 2, time.Millisecond)
	m.ObserveSave(OutcomeTransport, time.Millisecond)
	m.ObserveDelete(OutcomeCancelled)
	m.SkipTick()
	m.SetStreamActive(true)
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveDetection(OutcomeOK, 2, 10*time.Millisecond)
	m.ObserveDetection(OutcomeOK, 1, 10*time.Millisecond)
	m.ObserveDetection(OutcomeServerError, 0, 10*time.Millisecond)
	m.SkipTick()
	m.ObserveDelete(OutcomeCancelled)

	if got := testutil.ToFloat64(m.detections.WithLabelValues(OutcomeOK)); got != 2 {
		t.Errorf("ok detections = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.facesDetected); got != 3 {
		t.Errorf("faces = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.skippedTicks); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := m.lastFaces.Load(); got != 1 {
		t.Errorf("last faces = %d, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetStreamActive(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "goober_stream_active 1") {
		t.Errorf("stream gauge missing from output:\n%s", body)
	}
}
