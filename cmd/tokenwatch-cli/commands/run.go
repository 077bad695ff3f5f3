package commands

import (
	"errors"
	"log/slog"
	"tokenwatch-backend/lib/scrapers/financie"
	"tokenwatch-backend/lib/serviceutil"
	"tokenwatch-backend/services/stats"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Executes one scrape-diff-notify pass. Meant to be triggered by an external daily schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		service := stats.NewService(cfg, buildExtractors(cfg), stats.NewNotifier(cfg.WebhookUrl))

		err := service.Run(cmd.Context())
		if errors.Is(err, financie.ErrNoData) {
			// nothing was persisted and nothing was sent, there is
			// nothing more to do this run
			slog.Error("no data could be scraped this run", "err", err)
			return
		}
		if err != nil {
			serviceutil.Fatal("run failed", err)
		}
	},
}
