package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimkjin/BannerComposer/internal/archive"
	"github.com/kimkjin/BannerComposer/internal/catalog"
	"github.com/kimkjin/BannerComposer/internal/config"
	"github.com/kimkjin/BannerComposer/internal/handlers"
	"github.com/kimkjin/BannerComposer/internal/render"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the composer API server",
		Long: `Starts the composer HTTP API.

The API keeps campaign sessions in memory and forwards every render to the
rendering service configured with RENDER_URL. Packaged archives are uploaded
to MinIO when MINIO_ENDPOINT is set.`,
		Example: `  # Start server on the port from COMPOSER_PORT (default 8888)
  composer serve

  # Start server on custom port
  composer serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port == "" {
				port = cfg.Port
			}

			formatCatalog, err := loadFormats(cfg.FormatsFile)
			if err != nil {
				return err
			}

			logger := slog.Default()
			opts := handlers.Options{
				Formats:     formatCatalog,
				Renderer:    render.NewHTTPClient(cfg.RenderURL, cfg.RenderTimeout, logger),
				Assets:      catalog.New(cfg.LogosDir, cfg.FontsDir, logger),
				Concurrency: cfg.RenderConcurrency,
				Logger:      logger,
			}
			if cfg.PublishEnabled() {
				publisher, err := archive.NewMinioPublisher(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
				if err != nil {
					return fmt.Errorf("failed to configure publishing: %w", err)
				}
				opts.Publisher = publisher
				slog.Info("Archive publishing enabled", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
			}
			handler := handlers.New(opts)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(cfg.CORSOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Composer API available", "addr", addr, "url", "http://localhost"+addr, "render_url", cfg.RenderURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to COMPOSER_PORT or 8888)")

	return cmd
}
