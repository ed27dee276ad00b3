package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/persistence"
)

func migrateCommand(rt *cliContext) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				names, err := persistence.MigrationNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			if rt.cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN must be set to run migrations")
			}
			pg, err := persistence.NewPostgres(cmd.Context(), rt.cfg.Postgres, rt.logger)
			if err != nil {
				return fmt.Errorf("failed to connect postgres: %w", err)
			}
			defer pg.Close()
			if err := persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), rt.logger); err != nil {
				return err
			}
			rt.logger.Info("database is up to date", zap.String("dsn_host", pg.PoolHandle().Config().ConnConfig.Host))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the migration files instead of applying them")
	return cmd
}
