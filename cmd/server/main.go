package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nvoisin/gymsync/internal/server/handlers"
	"github.com/nvoisin/gymsync/internal/server/jwt"
	"github.com/nvoisin/gymsync/internal/server/middleware"
	"github.com/nvoisin/gymsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "gymsync-server.db", "Path to SQLite database")
	jwtSecret := flag.String("jwt-secret", "", "JWT signing secret (or GYMSYNC_JWT_SECRET)")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Access token lifetime")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	secret := *jwtSecret
	if secret == "" {
		secret = os.Getenv("GYMSYNC_JWT_SECRET")
	}
	if secret == "" {
		logger.Error("jwt secret is required (use -jwt-secret or GYMSYNC_JWT_SECRET)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, *dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	tokens := jwt.NewService([]byte(secret), *tokenTTL)

	authHandler := handlers.NewAuthHandler(logger, store, tokens)
	syncHandler := handlers.NewSyncHandler(logger, store)
	shareHandler := handlers.NewShareHandler(logger, store, store)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	// Auth эндпоинты ограничиваем по частоте, остальные закрыты токеном
	authLimiter := middleware.RateLimitMiddleware(10, time.Minute, logger)
	protected := middleware.AuthMiddleware(logger, tokens)

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/auth/register", authLimiter(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/v1/auth/login", authLimiter(http.HandlerFunc(authHandler.Login)))
	mux.Handle("GET /api/v1/sync/pull", protected(http.HandlerFunc(syncHandler.Pull)))
	mux.Handle("POST /api/v1/sync/push", protected(http.HandlerFunc(syncHandler.Push)))
	mux.Handle("POST /api/v1/share/{workout_id}", protected(http.HandlerFunc(shareHandler.Share)))
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	handler := middleware.RecoveryMiddleware(logger)(
		middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(mux))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", *addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func printVersion() {
	fmt.Printf("gymsync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
