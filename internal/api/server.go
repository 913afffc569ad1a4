// Package api exposes roughtimed's thin HTTP surface: liveness,
// readiness gated on the delegation certificate being built, and an
// optional Prometheus /metrics endpoint, adapted from the teacher's
// internal/api.Router.
package api

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the health/readiness flags read by handlers to the
// values the caller flips as startup progresses.
type Server struct {
	ready *atomic.Bool
}

// New returns a Server whose /readyz reports ready once MarkReady is
// called.
func New() *Server {
	return &Server{ready: &atomic.Bool{}}
}

// MarkReady flips the readiness flag; call it once the delegation
// certificate has been built and the UDP socket is bound.
func (s *Server) MarkReady() { s.ready.Store(true) }

// Router returns the HTTP handler for the optional health-check
// listener. metricsEnabled controls whether /metrics is mounted,
// matching the original implementation treating ROUGHENOUGH_HEALTH_CHECK_PORT
// as the single toggle for this whole surface.
func (s *Server) Router(metricsEnabled bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.ready.Load() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})
	if metricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}
