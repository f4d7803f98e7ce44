// Package server assembles the HTTP API: routes, middleware chain, and the
// WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zentrolabs/zentro-core/internal/crypto"
	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/server/handler"
	"github.com/zentrolabs/zentro-core/internal/server/middleware"
	"github.com/zentrolabs/zentro-core/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// APIKey gates all /api routes; empty disables the check.
	APIKey string

	// HMAC, when set, additionally accepts signed requests.
	HMAC *crypto.HMACAuth

	// RateLimit is the per-client request budget per RateLimitWindow.
	// Zero disables limiting.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Markets    *handler.MarketHandler
	Bets       *handler.BetHandler
	Liquidity  *handler.LiquidityHandler
	Settlement *handler.SettlementHandler
	Positions  *handler.PositionHandler
	Events     *handler.EventsHandler
	Vault      *handler.VaultHandler
}

// Server is the HTTP + WebSocket API server for the settlement core.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered on the ServeMux and the
// middleware chain (rate limit, auth, logging, CORS) wired around it.
// limiter may be nil to disable rate limiting; wsHub may be nil to disable
// the WebSocket endpoint.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Markets.ResolveMarket)
	mux.HandleFunc("POST /api/markets/{id}/cancel", handlers.Markets.CancelMarket)

	// Wagering.
	mux.HandleFunc("POST /api/markets/{id}/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/markets/{id}/bets", handlers.Bets.ListMarketBets)
	mux.HandleFunc("GET /api/bets", handlers.Bets.ListUserBets)

	// AMM pool.
	mux.HandleFunc("POST /api/markets/{id}/liquidity", handlers.Liquidity.AddLiquidity)
	mux.HandleFunc("DELETE /api/markets/{id}/liquidity", handlers.Liquidity.RemoveLiquidity)
	mux.HandleFunc("POST /api/markets/{id}/swap", handlers.Liquidity.Swap)
	mux.HandleFunc("POST /api/markets/{id}/fees/collect", handlers.Liquidity.CollectFees)

	// Settlement.
	mux.HandleFunc("POST /api/markets/{id}/claim", handlers.Settlement.ClaimWinnings)
	mux.HandleFunc("GET /api/markets/{id}/settlement", handlers.Settlement.SettlementReport)

	// Positions.
	mux.HandleFunc("GET /api/positions", handlers.Positions.GetPortfolio)
	mux.HandleFunc("GET /api/markets/{id}/positions", handlers.Positions.ListMarketPositions)

	// Account ledger.
	mux.HandleFunc("POST /api/vault/deposit", handlers.Vault.Deposit)
	mux.HandleFunc("GET /api/vault/{account}", handlers.Vault.GetBalance)

	// Event history.
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow, logger)(h)
	h = middleware.Auth(middleware.AuthConfig{APIKey: cfg.APIKey, HMAC: cfg.HMAC})(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
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

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
