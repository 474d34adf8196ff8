// Package http serves the JSON API over a tracker's synchronized collections.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"unidiary/internal/log"
	"unidiary/internal/middleware/ratelimit"
	"unidiary/internal/middleware/security"
	"unidiary/internal/middleware/trace"
	"unidiary/internal/services"
)

// Options tunes a Server. The zero value is usable.
type Options struct {
	Logger *log.Logger
	// RateLimitPerMinute caps /api requests per client; zero disables limiting.
	RateLimitPerMinute int
	// Now is the clock used for dashboard views.
	Now func() time.Time
}

type Server struct {
	http.Server
	tracker *services.Tracker
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	logger  *log.Logger
	now     func() time.Time
	started time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, tracker *services.Tracker, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		tracker: tracker,
		tracer:  trace.NewMiddleware(logger, extractClientIP),
		logger:  logger,
		now:     now,
		started: time.Now(),
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Handler)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "", "rate limit exceeded, try again later")
			}))
		}

		r.Get("/expenses", s.handleListExpenses)
		r.Post("/expenses", s.handleCreateExpense)
		r.Patch("/expenses/{id}", s.handleUpdateExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)
		r.Post("/expenses/{id}/paid", s.handleMarkPaid)

		r.Get("/budgets", s.handleListBudgets)
		r.Post("/budgets", s.handleCreateBudget)
		r.Patch("/budgets/{id}", s.handleUpdateBudget)
		r.Delete("/budgets/{id}", s.handleDeleteBudget)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handleSaveProfile)

		r.Get("/dashboard", s.handleDashboard)
		r.Post("/reload", s.handleReload)
	})

	return r
}

// Shutdown stops the limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
