package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServerHealthzWithNilMonitorReportsUnknown(t *testing.T) {
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "unknown" {
		t.Errorf("expected status 'unknown', got %q", body["status"])
	}
}

func TestServerHealthzWithHealthyMonitorReturns200(t *testing.T) {
	counters := &fakeCounterSource{}
	m := NewMonitor("run-http-1", counters, nil)
	s := NewServer(m)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for a healthy monitor, got %d", rec.Code)
	}
}

func TestServerHealthzWithUnhealthyMonitorReturns503(t *testing.T) {
	counters := &fakeCounterSource{files: 1}
	m := NewMonitor("run-http-2", counters, nil)
	for i := 0; i < 9; i++ {
		m.RecordCarveError("bmp")
	}
	s := NewServer(m)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for an unhealthy monitor, got %d", rec.Code)
	}
}

func TestServerMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Error("expected a non-empty Content-Type from the Prometheus handler")
	}
}

func TestServerUnknownRouteReturns404(t *testing.T) {
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unregistered route, got %d", rec.Code)
	}
}
