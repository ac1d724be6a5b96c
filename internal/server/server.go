// Package server exposes the client core over HTTP and WebSocket. Query
// endpoints are open reads; mutating endpoints run the orchestrator's full
// validate-submit-confirm workflow before answering.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flowponder/ponderd/internal/server/handler"
	"github.com/flowponder/ponderd/internal/server/middleware"
	"github.com/flowponder/ponderd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers. Operations and
// Snapshots may be nil when their backing stores are not configured; the
// handlers answer 501 in that case.
type Handlers struct {
	Health      *handler.HealthHandler
	Ponders     *handler.PonderHandler
	Session     *handler.SessionHandler
	Leaderboard *handler.LeaderboardHandler
	Operations  *handler.OperationsHandler
	Snapshots   *handler.SnapshotsHandler
}

// Server is the HTTP + WebSocket front of the ponder client.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Ponder reads.
	mux.HandleFunc("GET /api/ponders", handlers.Ponders.ListPonders)
	mux.HandleFunc("GET /api/ponders/{id}", handlers.Ponders.GetPonder)
	mux.HandleFunc("GET /api/categories", handlers.Ponders.ListCategories)

	// Ponder mutations: each blocks until the seal settles the outcome.
	mux.HandleFunc("POST /api/ponders", handlers.Ponders.CreatePonder)
	mux.HandleFunc("POST /api/ponders/{id}/votes", handlers.Ponders.PlaceVote)
	mux.HandleFunc("POST /api/ponders/{id}/withdraw", handlers.Ponders.Withdraw)

	// Session lifecycle.
	mux.HandleFunc("GET /api/session", handlers.Session.GetSession)
	mux.HandleFunc("POST /api/session/signin", handlers.Session.SignIn)
	mux.HandleFunc("POST /api/session/signout", handlers.Session.SignOut)
	mux.HandleFunc("POST /api/session/refresh", handlers.Session.RefreshBalance)

	// Rankings and per-user views.
	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.GetLeaderboard)
	mux.HandleFunc("GET /api/users/{address}/stats", handlers.Leaderboard.GetUserStats)
	mux.HandleFunc("GET /api/users/{address}/votes", handlers.Leaderboard.GetUserVotes)
	mux.HandleFunc("GET /api/users/{address}/balance", handlers.Leaderboard.GetUserBalance)

	// Diagnostics and archives.
	if handlers.Operations != nil {
		mux.HandleFunc("GET /api/operations", handlers.Operations.ListOperations)
	}
	if handlers.Snapshots != nil {
		mux.HandleFunc("GET /api/snapshots", handlers.Snapshots.ListSnapshots)
		mux.HandleFunc("GET /api/snapshots/{date}/{view}", handlers.Snapshots.GetSnapshot)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     h,
		ReadTimeout: 15 * time.Second,
		// Mutations hold the connection through seal confirmation, so the
		// write timeout must exceed the seal ceiling.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start listens for HTTP requests. It blocks until the server fails or is
// shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. No configured
// origins means allow all.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
