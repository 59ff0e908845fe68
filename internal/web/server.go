package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/mixtape-studio/internal/logging"
	"github.com/justestif/mixtape-studio/internal/session"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr        string
	TemplatesFS fs.FS
	StaticFS    fs.FS

	// WriteTimeout must cover a full playlist generation.
	WriteTimeout time.Duration
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Auth        Authenticator
	Sessions    *session.Store
	Resolver    Resolver
	Credentials CredentialWriter
	Catalog     CatalogFactory
	Recommender Recommender
	Health      func(context.Context) error
	Logger      *log.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *log.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig, deps Deps) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		logger: deps.Logger,
		handlers: &Handlers{
			auth:        deps.Auth,
			sessions:    deps.Sessions,
			resolver:    deps.Resolver,
			credentials: deps.Credentials,
			catalog:     deps.Catalog,
			recommender: deps.Recommender,
			templates:   templates,
			health:      deps.Health,
		},
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes(staticFS fs.FS) {
	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	s.router.Get("/", s.handlers.Home)
	s.router.Get("/health", s.handlers.Health)

	// Auth routes
	s.router.Get("/login", s.handlers.Login)
	s.router.Get("/logout", s.handlers.Logout)
	s.router.Get("/oauth-callback", s.handlers.Callback)

	s.router.Get("/search", s.handlers.Search)
	s.router.Post("/search/select", s.handlers.Select)
	s.router.Post("/search/remove", s.handlers.Remove)

	s.router.Post("/playlist/preview", s.handlers.Preview)
	s.router.Post("/playlist/save", s.handlers.Save)

	s.router.NotFound(s.handlers.NotFound)
}

// Run serves until ctx is cancelled or an interrupt arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", "http://"+s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
