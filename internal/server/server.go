// Package server assembles the HTTP and WebSocket API surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/server/handler"
	"github.com/Tolujoh-n/bitcoinworld/internal/server/middleware"
	"github.com/Tolujoh-n/bitcoinworld/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// RequestsPerMinute caps per-IP request rates when a limiter is
	// wired. Zero disables the cap.
	RequestsPerMinute int
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Polls    *handler.PollHandler
	Trades   *handler.TradeHandler
	Comments *handler.CommentHandler
	Stacks   *handler.StacksHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux
// and the middleware chain (CORS, logging, session auth) applied.
func NewServer(cfg Config, handlers Handlers, auth middleware.Authenticator, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Auth endpoints.
	mux.HandleFunc("POST /api/auth/register", handlers.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", handlers.Auth.Login)
	mux.HandleFunc("POST /api/auth/wallet-login", handlers.Auth.WalletLogin)
	mux.HandleFunc("GET /api/auth/me", middleware.RequireUser(handlers.Auth.Me))
	mux.HandleFunc("POST /api/auth/logout", handlers.Auth.Logout)

	// Poll endpoints. Creation, editing and resolution are admin-only.
	mux.HandleFunc("GET /api/polls", handlers.Polls.List)
	mux.HandleFunc("GET /api/polls/{id}", handlers.Polls.Get)
	mux.HandleFunc("POST /api/polls", middleware.RequireAdmin(handlers.Polls.Create))
	mux.HandleFunc("PUT /api/polls/{id}", middleware.RequireAdmin(handlers.Polls.Update))
	mux.HandleFunc("POST /api/polls/{id}/resolve", middleware.RequireAdmin(handlers.Polls.Resolve))

	// Trade endpoints.
	mux.HandleFunc("POST /api/trades", middleware.RequireUser(handlers.Trades.Execute))
	mux.HandleFunc("GET /api/trades", middleware.RequireUser(handlers.Trades.UserHistory))
	mux.HandleFunc("GET /api/trades/{pollId}", handlers.Trades.History)
	mux.HandleFunc("GET /api/trades/claimed/{pollId}", middleware.RequireUser(handlers.Trades.Claimed))
	mux.HandleFunc("POST /api/trades/redeem", middleware.RequireUser(handlers.Trades.Redeem))

	// Comment endpoints.
	mux.HandleFunc("GET /api/comments/{pollId}", handlers.Comments.List)
	mux.HandleFunc("POST /api/comments", middleware.RequireUser(handlers.Comments.Create))
	mux.HandleFunc("DELETE /api/comments/{id}", middleware.RequireUser(handlers.Comments.Delete))

	// Transaction status proxy.
	mux.HandleFunc("GET /api/stacks/tx/{txId}", handlers.Stacks.TxStatus)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Session(auth)(h)
	if limiter != nil && cfg.RequestsPerMinute > 0 {
		h = middleware.RateLimit(limiter, cfg.RequestsPerMinute, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		// Trade requests block on wallet prompts and chain confirmation;
		// the write timeout must outlive both.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
