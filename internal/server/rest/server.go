// Package rest exposes the HTTP JSON API: registration, login, token
// refresh and logout, the current user, task CRUD and health probes.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/auth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the route tree. tokens verifies bearer access tokens.
func NewRouter(h *Handler, tokens *auth.TokenIssuer, allowedOrigins []string) http.Handler {
	authn := &authenticator{tokens: tokens, logger: h.logger}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", common.AuthorizationHeaderName, "Content-Type", requestIDHeader},
		ExposedHeaders: []string{"Location", requestIDHeader},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/refresh", h.refresh)

			r.Group(func(r chi.Router) {
				r.Use(authn.middleware)
				r.Post("/logout", h.logout)
				r.Get("/me", h.me)
			})
		})

		r.Route("/task", func(r chi.Router) {
			r.Use(authn.middleware)
			r.Get("/", h.listTasks)
			r.Post("/", h.createTask)
			r.Get("/paged", h.pagedTasks)
			r.Get("/{id:[0-9]+}", h.getTask)
			r.Put("/{id:[0-9]+}", h.updateTask)
			r.Delete("/{id:[0-9]+}", h.deleteTask)
		})

		r.Route("/health", func(r chi.Router) {
			r.Get("/", h.health)
			r.Get("/info", h.info)
			r.Get("/db-test", h.dbTest)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, h.logger, common.ErrorNotFound)
	})
	return r
}

// Server runs the HTTP API until its context is cancelled.
type Server struct {
	address         string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          logging.Logger
}

func NewServer(address string, handler http.Handler, shutdownTimeout time.Duration, logger logging.Logger) *Server {
	return &Server{
		address:         address,
		handler:         handler,
		shutdownTimeout: shutdownTimeout,
		logger:          logger.With("module", "http_server"),
	}
}

// Run listens on the configured address and serves until ctx is done, then
// drains in-flight requests for at most the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
