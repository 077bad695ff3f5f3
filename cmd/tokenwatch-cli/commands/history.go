package commands

import (
	"fmt"
	"os"
	"tokenwatch-backend/lib/serviceutil"
	"tokenwatch-backend/services/stats"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().IntP("limit", "n", 14, "How many of the most recent rows to show, 0 for all.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>]",
	Short: "Shows the most recent rows of the stats table.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		tbl, err := stats.ReadTable(cfg.CsvPath)
		if err != nil {
			serviceutil.Fatal("failed to read stats table", err)
		}

		rows := tbl.Rows
		if *historyLimit > 0 && len(rows) > *historyLimit {
			rows = rows[len(rows)-*historyLimit:]
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Date", "Members", "Price", "Stock"})
		for _, row := range rows {
			t.AppendRow(table.Row{
				row.Date,
				row.Members,
				fmt.Sprintf("%.4f", row.Price),
				row.Stock,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
