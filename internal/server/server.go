package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cardarb/internal/server/handler"
	"cardarb/internal/server/middleware"
	"cardarb/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Opportunities *handler.OpportunityHandler
	Search        *handler.SearchHandler
	Health        *handler.HealthHandler
	Metrics       *handler.MetricsHandler
}

// Server is the HTTP + WebSocket API server for the arbitrage dashboard.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS) and attaches the WebSocket hub. The
// API key, when configured, protects the search trigger; read endpoints stay
// open for dashboards and load balancers.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	auth := middleware.Auth(cfg.APIKey)

	mux.HandleFunc("GET /opportunities", handlers.Opportunities.List)
	mux.HandleFunc("GET /opportunities/{id}", handlers.Opportunities.Get)
	mux.Handle("POST /search", auth(http.HandlerFunc(handlers.Search.Trigger)))
	mux.HandleFunc("GET /health", handlers.Health.Check)
	mux.HandleFunc("GET /metrics", handlers.Metrics.Collect)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
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

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
