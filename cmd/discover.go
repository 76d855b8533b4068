package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"threadwatch/internal/bootstrap"
	"threadwatch/internal/discovery"
	"threadwatch/internal/logger"
	"threadwatch/internal/metrics"
	"threadwatch/internal/repository"
	"threadwatch/internal/source"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run the discovery scheduler",
	Long:  `Polls randomized batches of configured channels and stores new posts.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := bootstrap.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if debug {
			cfg.Debug = true
		}

		log, err := bootstrap.CreateLogger(cfg, "threadwatch-discover", version)
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

		publisher := bootstrap.SetupEventPublisher(cfg, log)

		scheduler := discovery.NewScheduler(
			cfg.Discovery,
			source.NewClient(cfg.Discovery.OriginHost, log),
			repository.NewPostRepository(db.DB(), log),
			repository.NewChannelRepository(db.DB(), log),
			publisher,
			metrics.New(),
			log,
		)

		if runErr := scheduler.Run(cmd.Context()); runErr != nil && !errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("discovery scheduler: %w", runErr)
		}

		log.Info("Discovery scheduler stopped")
		return nil
	},
}
