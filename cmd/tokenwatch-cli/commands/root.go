package commands

import (
	"context"
	"log/slog"
	"os"
	"tokenwatch-backend/lib/configutil"
	"tokenwatch-backend/lib/scrapers/financie"
	"tokenwatch-backend/lib/serviceutil"
	"tokenwatch-backend/lib/telemetry"
	"tokenwatch-backend/services/stats"

	"github.com/spf13/cobra"
)

var configPath *string
var csvPath *string
var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "tokenwatch",
	Short: "Collects daily FiNANCiE community token stats.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "Path to the configuration file.")
	csvPath = rootCmd.PersistentFlags().String("csv", "", "Path to the stats csv, overrides the configured one.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig() stats.Config {
	cfg, err := configutil.ReadConfig[stats.Config](*configPath)
	if os.IsNotExist(err) {
		slog.Info("no config file found, using defaults", "path", *configPath)
	} else if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if url := os.Getenv("DISCORD_WEBHOOK_URL"); url != "" {
		cfg.WebhookUrl = url
	}
	if *csvPath != "" {
		cfg.CsvPath = *csvPath
	}
	return cfg.WithDefaults()
}

// the browser strategy goes first, static scraping plus the bancor api
// only runs when the rendered scrape comes up empty
func buildExtractors(cfg stats.Config) []financie.Extractor {
	static, err := financie.NewStaticExtractor(cfg.Scraper)
	if err != nil {
		serviceutil.Fatal("failed to initialize static extractor", err)
	}
	return []financie.Extractor{
		financie.NewBrowserExtractor(cfg.Scraper),
		static,
	}
}
