package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"doccrm/backend/internal/config"
	"doccrm/backend/internal/logging"
	authusecase "doccrm/backend/internal/usecase/auth"
)

// StorePinger reports whether the credential store is reachable.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer     *http.Server
	router         *http.ServeMux
	gated          *http.ServeMux
	handler        http.Handler
	authService    *authusecase.Service
	tokenService   *authusecase.TokenService
	store          StorePinger
	logger         logging.Logger
	allowedOrigins []string
	addr           string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(
	cfg config.Config,
	logger logging.Logger,
	authService *authusecase.Service,
	tokenService *authusecase.TokenService,
	store StorePinger,
) *Server {
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	srv := &Server{
		router:         http.NewServeMux(),
		gated:          http.NewServeMux(),
		authService:    authService,
		tokenService:   tokenService,
		store:          store,
		logger:         logger,
		allowedOrigins: cfg.AllowedOrigins,
		addr:           addr,
	}
	srv.registerRoutes()

	srv.handler = withTracing(withLogging(logger, withRecovery(logger, withCORS(srv.router, cfg.AllowedOrigins))))
	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      srv.handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
	}
	return srv
}

// Start bootstraps the HTTP server on the provided address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the fully wrapped handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
