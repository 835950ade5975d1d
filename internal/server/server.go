package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dundermifflin/dundie-api/internal/auth"
	"github.com/dundermifflin/dundie-api/internal/config"
	"github.com/dundermifflin/dundie-api/internal/http/handlers"
	"github.com/dundermifflin/dundie-api/internal/middleware"
	"github.com/dundermifflin/dundie-api/internal/rewards"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, log *slog.Logger) *Server {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	authenticator := middleware.NewAuthenticator(tokens, store)
	rewardsService := rewards.NewService(store)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(store, tokens, log).Register(mux)
	handlers.NewUserHandler(store, rewardsService, authenticator, log).Register(mux)
	handlers.NewTransactionHandler(store, rewardsService, authenticator, log).Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins,
		middleware.RequestID(
			middleware.Logging(log, mux)))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
