package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"auction/internal/auction"
	"auction/internal/auth"
	"auction/internal/custody"
	"auction/internal/models"
	"auction/internal/retry"
	"auction/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Engine is the auction behaviour the API exposes
type Engine interface {
	CreateAuction(ctx context.Context, in auction.CreateAuctionInput) (*models.Auction, error)
	PlaceBid(ctx context.Context, in auction.PlaceBidInput) (*models.Bid, error)
	CloseAuction(ctx context.Context, in auction.CloseAuctionInput) (*auction.Settlement, error)
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	GetAccount(ctx context.Context, address models.Identity) (*models.TokenAccount, error)
	Authority(seller models.Identity) (custody.Authority, error)
	ProgramID() models.Identity
}

// Options wires the server to the rest of the service
type Options struct {
	Port           int
	Engine         Engine
	Store          storage.Store // pinged by /health
	Verifier       *auth.Verifier
	Retry          retry.Strategy // defaults to no retry
	AmountDecimals int
}

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks, and the auction operations
type Server struct {
	httpServer *http.Server
	router     chi.Router
	engine     Engine
	store      storage.Store
	verifier   *auth.Verifier
	retry      retry.Strategy
	decimals   int
	addr       string
}

// NewServer creates a new API server instance
func NewServer(opts Options) *Server {
	router := chi.NewRouter()

	strategy := opts.Retry
	if strategy == nil {
		strategy = retry.NewNoRetryStrategy()
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", opts.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:   router,
		engine:   opts.Engine,
		store:    opts.Store,
		verifier: opts.Verifier,
		retry:    strategy,
		decimals: opts.AmountDecimals,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Endpoint not found", http.StatusNotFound)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// Core endpoints
	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.handleMetrics())

	// Auction endpoints
	s.router.Route("/auctions", func(r chi.Router) {
		r.Post("/", s.handleCreateAuction)
		r.Get("/{id}", s.handleGetAuction)
		r.Post("/{id}/bids", s.handlePlaceBid)
		r.Post("/{id}/close", s.handleCloseAuction)
	})
	s.router.Get("/bids/{id}", s.handleGetBid)
	s.router.Get("/accounts/{address}", s.handleGetAccount)
	s.router.Get("/authorities/{seller}", s.handleGetAuthority)
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in a goroutine.
// Bind failures are returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.addr = ln.Addr().String()

	slog.Info("API server starting",
		"addr", s.addr,
		"endpoints", []string{"/", "/health", "/metrics", "/auctions"},
		"retry", s.retry.Name(),
	)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once Start has succeeded
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
