package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"brokeometer/internal/core"
	"brokeometer/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the record store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewResponse().Status(httpStatus).JSON(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	created := atomic.LoadInt64(&s.appMetrics.expensesCreated)
	deleted := atomic.LoadInt64(&s.appMetrics.expensesDeleted)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	// Prometheus text exposition format
	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	writeMetric(w, "expenses_created_total", "counter", "Expenses recorded through the API", created)
	writeMetric(w, "expenses_deleted_total", "counter", "Expenses deleted through the API", deleted)
	writeMetric(w, "rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(uptime.Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
}

// handleCategories lists the fixed category enumeration in display order.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(core.Categories()).Write(w)
}

// internalError logs err and answers with a generic 500.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg, op string, err error) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), msg, err, log.ComponentHTTP, op, log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", ""))
	InternalServerError(msg).Write(w)
}
