package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/api"
	"github.com/justyntemme/booklens/internal/auth"
	"github.com/justyntemme/booklens/internal/config"
	"github.com/justyntemme/booklens/internal/logging"
	"github.com/justyntemme/booklens/internal/metadata"
	"github.com/justyntemme/booklens/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:           "booklens-server",
		Short:         "REST backend for the booklens reading tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, addr)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	cmd.Flags().StringVar(&addr, "url", "", "Server bind address (e.g., :3000 or 0.0.0.0:3000)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return err
	}
	defer logger.Sync()

	secret, err := cfg.RequireJWTSecret()
	if err != nil {
		return err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Metadata.GoogleBooksAPIKey == "" {
		logger.Warn("GOOGLE_BOOKS_API_KEY not set, book lookup uses Open Library only")
	}
	meta := metadata.NewDefaultService(cfg.Metadata.GoogleBooksAPIKey, logger)

	tokens := auth.NewManager(secret, auth.DefaultTokenTTL)
	router := api.NewRouter(
		api.NewHandler(db, meta, logger),
		api.NewAuthHandler(db, tokens, logger),
		tokens,
	)

	if addr == "" {
		addr = ":" + cfg.Server.Port
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("booklens server starting", zap.String("addr", addr), zap.String("db", cfg.Server.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
