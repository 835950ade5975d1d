package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/dundermifflin/dundie-api/internal/config"
	"github.com/dundermifflin/dundie-api/internal/models"
	"github.com/dundermifflin/dundie-api/internal/server"
	"github.com/dundermifflin/dundie-api/internal/storage/postgres"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("init database failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := ensureAdmin(ctx, store, cfg); err != nil {
		log.Error("seed admin user failed", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg, store, log)

	go func() {
		log.Info("dundie API listening", "addr", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("graceful shutdown error", "error", err)
	}
}

// ensureAdmin seeds the management-dept admin account so a fresh deployment
// has a point-issuing user to bootstrap from. Idempotent.
func ensureAdmin(ctx context.Context, store *postgres.Store, cfg config.Config) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return store.EnsureAdmin(ctx, models.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		Name:         "Admin",
		Dept:         models.DeptManagement,
		Currency:     "USD",
		PasswordHash: string(hash),
	})
}
