package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pratik-sharma-25/expenseTracker/internal/auth"
	"github.com/pratik-sharma-25/expenseTracker/internal/cache"
	"github.com/pratik-sharma-25/expenseTracker/internal/core"
	"github.com/pratik-sharma-25/expenseTracker/internal/services"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 30 * time.Second

	summaryCacheSize = 256
	summaryCacheTTL  = 30 * time.Second
)

// Server is the API process front end. Mutations go through the expense
// service onto the bus; reads hit the store directly. Summary responses are
// cached briefly since the pipeline is eventually consistent anyway.
type Server struct {
	http.Server

	expenses *services.ExpenseService
	authn    *auth.Authenticator
	tokens   *auth.TokenManager

	limiter      *rateLimiter
	summaryCache *cache.LRUCache[[]core.SummaryRow]
	caches       *cache.Manager
}

func NewServer(port string, expenses *services.ExpenseService, authn *auth.Authenticator, tokens *auth.TokenManager) *Server {
	s := &Server{
		expenses:     expenses,
		authn:        authn,
		tokens:       tokens,
		limiter:      newRateLimiter(60, time.Minute),
		summaryCache: cache.NewLRUCache[[]core.SummaryRow](summaryCacheSize, summaryCacheTTL),
		caches:       cache.NewManager(),
	}
	s.caches.Register(s.summaryCache)
	s.caches.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:         ":" + port,
		Handler:      s.withTrace(s.withRateLimit(mux)),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/user/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/user/login", s.handleLogin)

	mux.HandleFunc("POST /api/v1/expense", s.withAuth(s.handleCreateExpense))
	mux.HandleFunc("GET /api/v1/expense", s.withAuth(s.handleListExpenses))
	mux.HandleFunc("GET /api/v1/expense/summary", s.withAuth(s.handleSummary))
	mux.HandleFunc("GET /api/v1/expense/{id}", s.withAuth(s.handleGetExpense))
	mux.HandleFunc("PUT /api/v1/expense/{id}", s.withAuth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/v1/expense/{id}", s.withAuth(s.handleDeleteExpense))
}

// Start blocks serving requests until Stop is called or the listener fails.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and releases server resources.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.limiter.stop()
	s.caches.Stop()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
