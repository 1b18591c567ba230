package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/portfolio-site-backend/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(deps Deps) (Server, error) {
	if deps.Content == nil || deps.Sessions == nil {
		return Server{}, fmt.Errorf("server needs a content manager and a session service")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: deps.Config.Supabase.HTTPTimeout}
	}

	cfg := deps.Config.Server
	address := fmt.Sprintf("0.0.0.0:%s", cfg.Port) // Bind to 0.0.0.0 for external access
	startupTime := deps.Now()

	server := &http.Server{
		Addr:         address,
		Handler:      newRouter(deps, withStartupTime(startupTime)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      config.ServerConfig
	startupTime time.Time
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(deps Deps, opts ...func(*router)) *chi.Mux {
	router := router{config: deps.Config.Server}
	for _, opt := range opts {
		opt(&router)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(RequestID)
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(HTTPLoggingMiddleware(log.With().Str("component", "http").Logger()))
	if len(router.config.AcceptedOrigins) > 0 {
		chiRouter.Use(corsMiddleware(router.config.AcceptedOrigins))
	}

	handlers := initializeHandlers(deps)
	authMiddleware := newAuthMiddleware(deps.Sessions, deps.Now)

	setupPublicRoutes(chiRouter, handlers, router)
	setupAdminRoutes(chiRouter, handlers, authMiddleware, router)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
