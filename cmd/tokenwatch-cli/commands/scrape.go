package commands

import (
	"fmt"
	"tokenwatch-backend/lib/scrapers/financie"
	"tokenwatch-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var scrapeStatic *bool

func init() {
	scrapeStatic = scrapeCmd.Flags().Bool("static", false, "Skip the browser strategy and only use static scraping.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--static]",
	Short: "Runs the extractors and prints the snapshot without touching the stats table.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		extractors := buildExtractors(cfg)
		if *scrapeStatic {
			extractors = extractors[1:]
		}

		snap, err := financie.Chain(cmd.Context(), extractors...)
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}

		fmt.Printf("members: %d\n", snap.Members)
		fmt.Printf("price:   %.4f\n", snap.Price)
		fmt.Printf("stock:   %d\n", snap.Stock)
	},
}
