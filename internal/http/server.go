// Package http exposes the expense and budget services as a JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"finanote/internal/core"
	applog "finanote/internal/log"
	"finanote/internal/middleware/ratelimit"
	"finanote/internal/middleware/security"
	"finanote/internal/middleware/trace"
)

// ExpenseService is the expense API the handlers depend on.
type ExpenseService interface {
	Create(ctx context.Context, userID int64, f core.ExpenseFields) (core.Expense, error)
	List(ctx context.Context, userID int64) ([]core.Expense, error)
	ListByMonth(ctx context.Context, userID int64, year, month int) ([]core.Expense, error)
	ListByDateRange(ctx context.Context, userID int64, start, end core.Date) ([]core.Expense, error)
	Get(ctx context.Context, userID, expenseID int64) (core.Expense, error)
	Update(ctx context.Context, userID, expenseID int64, f core.ExpenseFields) (core.Expense, error)
	Delete(ctx context.Context, userID, expenseID int64) error
	Dashboard(ctx context.Context, userID int64, year, month int) (core.DashboardStats, error)
}

type UserService interface {
	Profile(ctx context.Context, userID int64) (core.User, error)
	UpdateBudget(ctx context.Context, userID int64, budget core.Money) (core.User, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr               string
	Expenses           ExpenseService
	Users              UserService
	Health             HealthChecker
	JWTSecret          string
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Now defaults to time.Now; it picks the month when a request names none.
	Now func() time.Time
}

type Server struct {
	http.Server
	expenses ExpenseService
	users    UserService
	health   HealthChecker
	auth     *Authenticator
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *applog.Logger
	now      func() time.Time

	shutdownOnce sync.Once
}

func NewServer(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		expenses: opts.Expenses,
		users:    opts.Users,
		health:   opts.Health,
		auth:     NewAuthenticator(opts.JWTSecret),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		logger:   opts.Logger.WithComponent(applog.ComponentHTTP),
		now:      opts.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/expenses/categories", s.handleCategories)
	mux.Handle("POST /api/expenses", s.protected(s.handleCreateExpense))
	mux.Handle("GET /api/expenses", s.protected(s.handleListExpenses))
	mux.Handle("GET /api/expenses/month", s.protected(s.handleListByMonth))
	mux.Handle("GET /api/expenses/range", s.protected(s.handleListByRange))
	mux.Handle("GET /api/expenses/dashboard", s.protected(s.handleDashboard))
	mux.Handle("GET /api/expenses/{id}", s.protected(s.handleGetExpense))
	mux.Handle("PUT /api/expenses/{id}", s.protected(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", s.protected(s.handleDeleteExpense))

	mux.Handle("GET /api/user/profile", s.protected(s.handleProfile))
	mux.Handle("PUT /api/user/budget", s.protected(s.handleUpdateBudget))

	var handler http.Handler = mux
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// protected requires a bearer token and rate limits writes per user.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	limited := s.limiter.Middleware(mutatingUserKey, writeRateLimited)(h)
	return s.auth.Middleware(limited)
}

func mutatingUserKey(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ""
	}
	if id, ok := userIDFrom(r.Context()); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return ""
}

// Metrics is a snapshot of the request counters kept by the middleware.
type Metrics struct {
	TotalRequests      int64
	ServerErrors       int64
	RateLimitHits      int64
	RateLimitedClients int64
	SuspiciousRequests int64
	BlockedRequests    int64
}

func (s *Server) Metrics() Metrics {
	t, rl, d := s.tracer.GetMetrics(), s.limiter.GetMetrics(), s.detector.GetMetrics()
	return Metrics{
		TotalRequests:      t.TotalRequests,
		ServerErrors:       t.ServerErrors,
		RateLimitHits:      rl.TotalHits,
		RateLimitedClients: rl.ClientCount,
		SuspiciousRequests: d.SuspiciousRequests,
		BlockedRequests:    d.BlockedRequests,
	}
}

// Shutdown stops background work, drains in-flight requests and logs the
// final request counters.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)

		m := s.Metrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			applog.FieldOperation, applog.OpShutdown,
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limit_hits", m.RateLimitHits,
			"rate_limited_clients", m.RateLimitedClients,
			"suspicious_requests", m.SuspiciousRequests,
			"blocked_requests", m.BlockedRequests)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			NewJSONResponse().Status(http.StatusServiceUnavailable).Body(map[string]string{"status": "unavailable"}).Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
