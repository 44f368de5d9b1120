package http

import (
	"fmt"
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// handleReady reports whether the server can actually serve traffic: the
// database must answer a ping. The event pipeline is reported but does not
// fail readiness, since publishing is best effort.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	type readiness struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Pipeline string `json:"pipeline"`
	}

	resp := readiness{Status: "ready", Database: "ok", Pipeline: "ok"}
	status := http.StatusOK

	if err := s.repo.Ping(r.Context()); err != nil {
		resp.Status = "unavailable"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	if !s.ledger.PipelineReady() {
		resp.Pipeline = "degraded"
	}

	s.writeJSON(w, status, resp)
}

// handleMetrics exposes a small plain-text counter dump. Not a full metrics
// endpoint, just enough to watch the service from a scrape or curl.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.tracer.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "requests_total %d\n", m.TotalRequests)
	fmt.Fprintf(w, "request_errors_total %d\n", m.ErrorResponses)
	fmt.Fprintf(w, "request_last_duration_ms %d\n", m.LastDurationMS)
	fmt.Fprintf(w, "ratelimit_active_clients %d\n", s.limiter.ActiveClients())
	fmt.Fprintf(w, "ratelimit_rejected_total %d\n", s.limiter.LimitedCount())
	fmt.Fprintf(w, "summary_cache_entries %d\n", s.ledger.SummaryCache().Size())
}
