package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"brokeometer/internal/budget"
	"brokeometer/internal/core"
	"brokeometer/internal/log"
	"brokeometer/internal/middleware/ratelimit"
	"brokeometer/internal/middleware/security"
	"brokeometer/internal/middleware/trace"
	"brokeometer/internal/storage"
)

// Tracker is the budget state the API exposes. *services.Tracker
// implements it.
type Tracker interface {
	AddExpense(ctx context.Context, in budget.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) (core.Expense, error)
	UpdateLimits(ctx context.Context, monthly, weekly float64) (core.UserBudget, error)
	ResetSavings(ctx context.Context) (core.UserBudget, error)
	Login(ctx context.Context, name, username, password string) (core.UserProfile, error)
	Logout(ctx context.Context) error
	State(ctx context.Context) budget.Snapshot
	Dashboard(ctx context.Context) core.Dashboard
	SavingsHistory(ctx context.Context) budget.Savings
	RefreshInsights(ctx context.Context) error
}

type Config struct {
	Addr               string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	tracker Tracker
	store   storage.RecordStore
	logger  *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	expensesCreated int64
	expensesDeleted int64
	uptime          time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. The store is read directly for the latest insight and pinged for
// readiness.
func NewServer(cfg Config, tracker Tracker, store storage.RecordStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		tracker:          tracker,
		store:            store,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: security.NewDetector(logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/profile", s.handleLogin)
	mux.HandleFunc("DELETE /api/profile", s.handleLogout)

	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budget", s.handleUpdateBudget)
	mux.HandleFunc("POST /api/budget/savings/reset", s.handleResetSavings)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/savings", s.handleSavings)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("POST /api/insights/refresh", s.handleRefreshInsights)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, isMutation, s.onRateLimit)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

func isMutation(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
