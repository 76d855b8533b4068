package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"threadwatch/internal/bootstrap"
	"threadwatch/internal/commenter"
	"threadwatch/internal/logger"
	"threadwatch/internal/metrics"
	"threadwatch/internal/repository"
)

var commentOnce bool

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Run the comment consumer",
	Long:  `Claims batches of uncommented posts and works through them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := bootstrap.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if debug {
			cfg.Debug = true
		}

		log, err := bootstrap.CreateLogger(cfg, "threadwatch-comment", version)
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

		runner := commenter.NewRunner(
			cfg.Consumer,
			repository.NewPostRepository(db.DB(), log),
			commenter.NewTemplateGenerator(),
			commenter.NewDryRunActor(log),
			publisher,
			metrics.New(),
			log,
		)

		var runErr error
		if commentOnce {
			runErr = runner.RunOnce(cmd.Context())
		} else {
			runErr = runner.Run(cmd.Context())
		}
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("comment consumer: %w", runErr)
		}

		log.Info("Comment consumer stopped")
		return nil
	},
}

func init() {
	commentCmd.Flags().BoolVar(&commentOnce, "once", false, "Process a single batch and exit")
}
