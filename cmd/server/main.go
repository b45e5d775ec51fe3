// server runs the legal RAG HTTP service: retrieval-augmented search, Q&A
// and content generation over a Korean legal document corpus.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"legal-rag-service/internal/api"
	"legal-rag-service/internal/config"
	"legal-rag-service/internal/di"
	"legal-rag-service/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build service: %v\n", err)
		return 1
	}
	logger := logging.WithComponent("server")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(container.HandlerDeps(), container.Limiter),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			shutdownContainer(container, logger)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", "error", err)
	}
	shutdownContainer(container, logger)
	logger.Info("server stopped")
	return 0
}

func shutdownContainer(container *di.Container, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.Shutdown(ctx); err != nil {
		logger.Warn("component shutdown incomplete", "error", err)
	}
}
