// ABOUTME: Tests for Prometheus metrics
// ABOUTME: Verifies counters and the exposition handler on a private registry
package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewMetricsIsolated(t *testing.T) {
	// Two instances must not collide on registration
	a := NewMetrics()
	b := NewMetrics()

	a.RecordCaptureStarted()
	if counterValue(t, a.CapturesStarted) != 1 {
		t.Errorf("expected 1 capture on a")
	}
	if counterValue(t, b.CapturesStarted) != 0 {
		t.Errorf("expected 0 captures on b")
	}
}

func TestRecordClip(t *testing.T) {
	m := NewMetrics()
	m.RecordClip(4096, 2*time.Second, 15*time.Millisecond)
	m.RecordDecodeFailure()
	m.RecordAcquisitionFailure()
	m.RecordClipReleased()

	if counterValue(t, m.ClipsEncoded) != 1 {
		t.Error("expected 1 clip encoded")
	}
	if counterValue(t, m.DecodeFailures) != 1 {
		t.Error("expected 1 decode failure")
	}
	if counterValue(t, m.AcquisitionFailures) != 1 {
		t.Error("expected 1 acquisition failure")
	}
	if counterValue(t, m.ClipsReleased) != 1 {
		t.Error("expected 1 clip released")
	}
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.SessionOpened()
	m.RecordHTTPRequest("POST", "/api/reverse", "200", 10*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"backspeak_active_sessions 1",
		`backspeak_http_requests_total{method="POST",route="/api/reverse",status_code="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
}
