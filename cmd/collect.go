package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/internal/cache"
	"github.com/vexlio/sigcor-cli/internal/config"
	"github.com/vexlio/sigcor-cli/internal/correlate"
	"github.com/vexlio/sigcor-cli/internal/enrich"
	"github.com/vexlio/sigcor-cli/internal/observability"
	"github.com/vexlio/sigcor-cli/internal/pipeline"
	"github.com/vexlio/sigcor-cli/internal/risk"
	"github.com/vexlio/sigcor-cli/internal/sources"
	"github.com/vexlio/sigcor-cli/internal/store"
)

// newCollectCmd creates and configures the `collect` command, which runs one
// full collection pipeline invocation.
func newCollectCmd() *cobra.Command {
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Runs one collection pipeline invocation and writes the JSON artifacts",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so CLI flags override config
			// file and environment values with the right precedence.
			if err := viper.BindPFlag("output.dir", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			if err := viper.BindPFlag("cache.dir", cmd.Flags().Lookup("cache-dir")); err != nil {
				return err
			}
			if err := viper.BindPFlag("cache.ttl_override", cmd.Flags().Lookup("ttl")); err != nil {
				return err
			}
			if err := viper.BindPFlag("enrichment.enabled", cmd.Flags().Lookup("enrich")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize pipeline components: %w", err)
			}
			defer components.Shutdown()

			run, err := components.Pipeline.Run(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Collection run aborted")
					return fmt.Errorf("collection aborted by user signal")
				}
				return err
			}

			fmt.Printf("\nCollection complete. Run ID: %s\n", run.RunID)
			fmt.Printf("Risk: %s (score %d/100, confidence %d). Artifacts in %s\n",
				run.Risk.Level, run.Risk.Score, run.Risk.Confidence, cfg.Output.Dir)
			return nil
		},
	}

	collectCmd.Flags().StringP("output", "o", "out", "Directory for the JSON artifacts.")
	collectCmd.Flags().String("cache-dir", "", "Cache directory. (Overrides config/env)")
	collectCmd.Flags().Duration("ttl", 0, "Cache TTL override for all sources. (Overrides config/env)")
	collectCmd.Flags().Bool("enrich", true, "Enable the narrative enrichment call.")

	return collectCmd
}

// collectComponents holds the initialized services for one invocation.
type collectComponents struct {
	Pipeline *pipeline.Pipeline
	DBPool   *pgxpool.Pool
}

// Shutdown closes anything holding external resources.
func (cc *collectComponents) Shutdown() {
	if cc.DBPool != nil {
		cc.DBPool.Close()
	}
}

// initializeComponents handles dependency injection for the collect command.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*collectComponents, error) {
	components := &collectComponents{}

	// 1. Cache and fetchers. The sources are an explicit list composed here;
	// adding a source means adding a constructor call, not a registration.
	scraperCache := cache.New(cfg.Cache.Dir, logger)

	socialCfg := cfg.Sources.Social
	socialCfg.Query = resolveSocialQuery(cfg, logger)

	fetchers := []*sources.Fetcher{
		sources.NewFetcher(
			sources.NewInfrastructureSource(cfg.Sources.Infra, logger),
			scraperCache, cfg.Sources.Infra, cfg.SourceTTL(cfg.Sources.Infra), logger),
		sources.NewFetcher(
			sources.NewSocialSource(socialCfg, logger),
			scraperCache, socialCfg, cfg.SourceTTL(socialCfg), logger),
	}

	// 2. Enrichment.
	var generator enrich.Generator
	if cfg.Enrichment.Enabled {
		generator = enrich.NewClient(cfg.Enrichment, logger)
	}
	enricher := enrich.NewOrchestrator(generator, cfg.Enrichment.Model, logger)

	// 3. Optional run archive.
	var archive pipeline.Archiver
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return components, fmt.Errorf("failed to connect to database: %w", err)
		}
		components.DBPool = pool

		dbStore, err := store.New(ctx, pool, logger)
		if err != nil {
			return components, fmt.Errorf("failed to initialize run archive: %w", err)
		}
		archive = dbStore
	}

	// 4. Pipeline.
	writer := pipeline.NewArtifactWriter(cfg.Output.Dir, logger)
	p, err := pipeline.New(
		fetchers,
		correlate.New(logger),
		risk.New(logger),
		enricher,
		archive,
		writer,
		logger,
	)
	if err != nil {
		return components, fmt.Errorf("failed to create pipeline: %w", err)
	}
	components.Pipeline = p

	return components, nil
}

// resolveSocialQuery returns the configured social search query, or a
// generated default memoized for the current day so reruns within a day see a
// consistent result set.
func resolveSocialQuery(cfg *config.Config, logger *zap.Logger) string {
	if cfg.Sources.Social.Query != "" {
		return cfg.Sources.Social.Query
	}

	memo := cache.NewQueryMemo(cfg.Cache.Dir)
	if query, ok := memo.Get("social-media"); ok {
		return query
	}

	query := defaultSocialQuery(time.Now())
	if err := memo.Put("social-media", query); err != nil {
		logger.Warn("Failed to memoize generated query", zap.Error(err))
	}
	return query
}

// defaultSocialQuery builds the fallback social search query for a given day.
func defaultSocialQuery(now time.Time) string {
	return fmt.Sprintf("CVE-%d OR exploit OR ransomware OR zero-day", now.Year())
}
