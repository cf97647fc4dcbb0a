// Package cli provides the command-line interface for the resale price
// estimator: entity resolution, price lookup, catalog refresh, run status,
// coverage reporting and stored data hygiene.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cachememory "github.com/FalkoBaeker/tonie-app/internal/adapters/cache/memory"
	cacheredis "github.com/FalkoBaeker/tonie-app/internal/adapters/cache/redis"
	"github.com/FalkoBaeker/tonie-app/internal/adapters/source/browseapi"
	"github.com/FalkoBaeker/tonie-app/internal/adapters/source/classifieds"
	"github.com/FalkoBaeker/tonie-app/internal/adapters/source/soldpages"
	"github.com/FalkoBaeker/tonie-app/internal/adapters/source/testsource"
	storagememory "github.com/FalkoBaeker/tonie-app/internal/adapters/storage/memory"
	"github.com/FalkoBaeker/tonie-app/internal/adapters/storage/postgresql"
	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/application/usecases"
	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
	"github.com/FalkoBaeker/tonie-app/internal/logger"
	"github.com/FalkoBaeker/tonie-app/internal/pricing"
	"github.com/FalkoBaeker/tonie-app/internal/resolver"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	configFile string

	cfg *config.Config
	log *slog.Logger

	closers   []func() error
	cat       *catalog.Catalog
	res       *resolver.Resolver
	storage   ports.StoragePort
	telemetry ports.TelemetryPort
	cache     ports.CachePort
	ingester  *usecases.Ingester
)

var rootCmd = &cobra.Command{
	Use:   "tonie-app",
	Short: "Resale price estimation for collectible audio figures",
	Long: `tonie-app estimates fair resale prices for Tonie audio figures.

It resolves free-text queries against the figure catalog, collects sold and
asking prices from multiple marketplaces, filters listing noise, and
aggregates the samples into an instant/fair/patience price triple.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if configFile != "" {
			os.Setenv("CONFIG_FILE", configFile)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		var closeLog func() error
		log, closeLog = logger.New(cfg.Logging.File, logger.ParseLevel(cfg.Logging.Level))
		closers = append(closers, closeLog)

		return wire()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: shutdown: %v\n", err)
			}
		}
	},
}

// wire builds the adapter set for the configured data mode and the shared
// services on top of it.
func wire() error {
	var err error
	cat, err = catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	res = resolver.New(cat)

	if cfg.DataMode == "test" {
		mem := storagememory.New()
		storage = mem
		telemetry = mem
		cache = cachememory.New()
		ingester = usecases.NewIngester(storage, testSources(), cfg.Market, log)
		return nil
	}

	pg, err := postgresql.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	storage = pg
	telemetry = pg
	closers = append(closers, pg.Close)

	if cfg.Cache.Enabled {
		rc, err := cacheredis.New(cfg.Cache)
		if err != nil {
			return fmt.Errorf("connect cache: %w", err)
		}
		cache = rc
		closers = append(closers, rc.Close)
	} else {
		cache = cachememory.New()
	}

	sources, err := liveSources()
	if err != nil {
		return err
	}
	ingester = usecases.NewIngester(storage, sources, cfg.Market, log)
	return nil
}

func liveSources() ([]ports.SourcePort, error) {
	var out []ports.SourcePort

	if cfg.Sources.SoldPages.Enabled {
		out = append(out, soldpages.New(cfg.Sources.SoldPages, cfg.Market, log))
	}
	if cfg.Sources.Classifieds.Enabled {
		out = append(out, classifieds.New(cfg.Sources.Classifieds, cfg.Market, log))
	}
	if cfg.Sources.BrowseAPI.Enabled {
		api, err := browseapi.New(cfg.Sources.BrowseAPI, cfg.Market, log)
		if err != nil {
			return nil, fmt.Errorf("browse api source: %w", err)
		}
		out = append(out, api)
	}
	return out, nil
}

func testSources() []ports.SourcePort {
	return []ports.SourcePort{
		testsource.New(models.SourceSoldPages, 18, 6, 14),
		testsource.New(models.SourceClassifieds, 21, 8, 10),
	}
}

func pricingService() *usecases.PricingService {
	engine := pricing.NewEngine(cfg.Market)
	return usecases.NewPricingService(cat, storage, cache, telemetry, ingester, engine, cfg.Market, log)
}

func refreshService() *usecases.RefreshService {
	return usecases.NewRefreshService(cat, storage, ingester, cfg.Market, log)
}

func coverageService() *usecases.CoverageService {
	return usecases.NewCoverageService(cat, storage, ingester, cfg.Market, log)
}

func hygieneService() *usecases.HygieneService {
	return usecases.NewHygieneService(cat, storage, log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default configs/config.json)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(cleanupCmd)
}
