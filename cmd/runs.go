package cmd

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vexlio/sigcor-cli/internal/config"
	"github.com/vexlio/sigcor-cli/internal/observability"
	"github.com/vexlio/sigcor-cli/internal/store"
)

// newRunsCmd creates the `runs` command, which lists recently archived runs
// from the configured database so risk drift is visible across invocations.
func newRunsCmd() *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Lists recently archived collection runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("the runs command requires a run archive: set database.url")
			}

			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}

			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			archive, err := store.New(ctx, pool, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize run archive: %w", err)
			}

			runs, err := archive.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No archived runs.")
				return nil
			}

			for _, run := range runs {
				fmt.Printf("%s  score %3d/100  %s\n", run.RunID, run.Score, run.Level)
			}
			return nil
		},
	}

	runsCmd.Flags().IntP("limit", "n", 10, "Maximum number of runs to list.")

	return runsCmd
}
