package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"threadwatch/internal/bootstrap"
	"threadwatch/internal/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the status API server",
	Long:  `Serves the read-only queue status API and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := bootstrap.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if debug {
			cfg.Debug = true
		}

		log, err := bootstrap.CreateLogger(cfg, "threadwatch-api", version)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := bootstrap.SetupDatabase(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Error("Failed to close database", logger.Error(closeErr))
			}
		}()

		server := bootstrap.SetupHTTPServer(cfg, db, log)

		errCh := make(chan error, 1)
		go func() {
			log.Info("Starting HTTP server",
				logger.String("addr", server.Addr),
			)
			if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				errCh <- serveErr
			}
		}()

		select {
		case serveErr := <-errCh:
			return fmt.Errorf("http server: %w", serveErr)
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(ctx); shutdownErr != nil {
			return fmt.Errorf("shutdown http server: %w", shutdownErr)
		}

		log.Info("Server exited")
		return nil
	},
}
