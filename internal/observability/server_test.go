package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Probes(t *testing.T) {
	s := NewServer(":0", prometheus.NewRegistry())

	tests := []struct {
		name  string
		ready bool
		path  string
		code  int
		body  string
	}{
		{"healthz before ready", false, "/healthz", http.StatusOK, "ok"},
		{"readyz before ready", false, "/readyz", http.StatusServiceUnavailable, "not ready"},
		{"readyz once ready", true, "/readyz", http.StatusOK, "ready"},
		{"readyz after unready", false, "/readyz", http.StatusServiceUnavailable, "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetReady(tt.ready)
			rec := get(t, s.Handler(), tt.path)
			if rec.Code != tt.code || rec.Body.String() != tt.body {
				t.Errorf("%s: got %d %q, want %d %q", tt.path, rec.Code, rec.Body.String(), tt.code, tt.body)
			}
		})
	}
}

func TestServer_MetricsFromGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "scrape_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	rec := get(t, NewServer(":0", reg).Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "scrape_test_total 3") {
		t.Errorf("expected registry counter in scrape, got:\n%s", rec.Body.String())
	}
}

func TestServer_RejectsPost(t *testing.T) {
	s := NewServer(":0", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", rec.Code)
	}
}
