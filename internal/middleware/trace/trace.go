// Package trace assigns request ids and logs each request.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"brokeometer/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader is echoed back, and reused when the client sends one.
	RequestIDHeader = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger
	requests  *log.StructuredLogger
	metrics   *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests      int64
	ServerErrors       int64
	LastResponseTimeUs int64
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentTrace)
	return &Middleware{
		extractIP: extractIP,
		logger:    logger,
		requests:  log.NewStructuredLogger(logger),
		metrics:   &Metrics{},
	}
}

// Middleware returns HTTP middleware for request tracing. The request
// logger carrying the id is stored in the context for handlers.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = context.WithValue(ctx, log.LoggerContextKey, m.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		m.requests.LogHTTPStart(ctx, r, clientIP)
		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		atomic.StoreInt64(&m.metrics.LastResponseTimeUs, duration.Microseconds())
		if rw.statusCode >= 500 {
			atomic.AddInt64(&m.metrics.ServerErrors, 1)
		}

		m.requests.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:      atomic.LoadInt64(&m.metrics.TotalRequests),
		ServerErrors:       atomic.LoadInt64(&m.metrics.ServerErrors),
		LastResponseTimeUs: atomic.LoadInt64(&m.metrics.LastResponseTimeUs),
	}
}
