package monitoring

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a run's Prometheus metrics and a health endpoint over
// plain HTTP, for a sidecar scraper or an operator's liveness probe to
// poll while a long carving run is in progress.
type Server struct {
	monitor *Monitor
	router  *mux.Router
}

// NewServer builds a Server backed by monitor. With a nil monitor, /healthz
// still answers 200 with status "unknown".
func NewServer(monitor *Monitor) *Server {
	s := &Server{monitor: monitor, router: mux.NewRouter()}
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	return s
}

// Handler returns the server's http.Handler for use with an http.Server or
// httptest.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unknown"})
		return
	}

	health := s.monitor.HealthCheck()
	status := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(health)
}

// ListenAndServe starts the server on addr. It blocks until the listener
// errors or the process is asked to stop elsewhere.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.router)
}
