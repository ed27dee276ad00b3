package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/observability"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliContext holds what every subcommand needs after config is loaded.
type cliContext struct {
	cfg    *config.Config
	logger *zap.Logger
}

func rootCommand() *cobra.Command {
	rt := &cliContext{}
	root := &cobra.Command{
		Use:           "worklist",
		Short:         "Ship maintenance work list service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			rt.cfg, rt.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	serve := serveCommand(rt)
	root.AddCommand(serve, migrateCommand(rt))
	// Running the binary without a subcommand starts the server.
	root.RunE = serve.RunE
	return root
}
