package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"family-harmony/internal/api"
	"family-harmony/internal/app"
	"family-harmony/internal/config"
	"family-harmony/internal/logger"
	"family-harmony/internal/session"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	application.Resume(ctx)
	application.Session().StartRefreshLoop(ctx, session.RefreshInterval)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(application, zl).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zl.Warn("server shutdown", zap.Error(err))
		}
	}()

	zl.Info("listening", zap.String("addr", cfg.ListenAddr), zap.Bool("demo", cfg.DemoMode))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("server error", zap.Error(err))
	}
}
