package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthigger/oh-sched-web/internal/adapters/engine"
	"github.com/matthigger/oh-sched-web/internal/adapters/http/api"
	"github.com/matthigger/oh-sched-web/internal/adapters/objectstore"
	"github.com/matthigger/oh-sched-web/internal/app"
	"github.com/matthigger/oh-sched-web/internal/config"
	"github.com/matthigger/oh-sched-web/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeSlack        = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, janitor, err := buildServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	go janitor.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildServer wires every component from cfg. The scratch root is emptied
// so uploads from a previous process never linger.
func buildServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*http.Server, *app.Janitor, error) {
	scratch, outputs := cfg.ScratchPath(), cfg.OutputPath()
	if err := app.ClearDir(scratch); err != nil {
		return nil, nil, fmt.Errorf("clear scratch dir: %w", err)
	}

	store, err := usageStore(ctx, cfg)
	switch {
	case err != nil:
		log.Warn(ctx, "usage store unavailable; usage records will only be logged", logger.Error(err))
	case store == nil:
		log.Warn(ctx, "no bucket configured; usage records will only be logged")
	}

	svc := app.New(
		app.WithEngine(engine.NewExecEngine(
			engine.WithCommand(cfg.EngineCommand),
			engine.WithTimeout(cfg.RunTimeout),
			engine.WithLogger(log.Named("engine")),
		)),
		app.WithStore(store),
		app.WithUsageTimeout(cfg.UsageTimeout),
		app.WithLogger(log.Named("runner")),
		app.WithScratchRoot(scratch),
		app.WithOutputRoot(outputs),
	)

	mux := http.NewServeMux()
	api.NewServer(svc,
		api.WithOutputRoot(outputs),
		api.WithUsageFile(cfg.UsagePath()),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithRunRate(cfg.RunRatePerSec, cfg.RunBurst),
		api.WithLogger(log.Named("http")),
	).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.RunTimeout + writeSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	janitor := app.NewJanitor(outputs, cfg.OutputRetention, cfg.PruneInterval, log.Named("janitor"))
	return srv, janitor, nil
}

// usageStore returns the configured bucket store, or nil without a bucket.
func usageStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	s, err := objectstore.NewS3Store(ctx, cfg.Bucket,
		objectstore.WithRegion(cfg.S3Region),
		objectstore.WithEndpoint(cfg.S3Endpoint),
		objectstore.WithPathStyle(cfg.S3PathStyle),
		objectstore.WithStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey),
		objectstore.WithKeyPrefix(cfg.S3KeyPrefix),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
