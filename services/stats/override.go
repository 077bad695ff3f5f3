package stats

import (
	"log/slog"
	"strings"
	"time"
)

// OverrideConfig is an operator-supplied correction for a historical
// day, used to patch data lost to scraping outages. All four fields
// must be provided together.
type OverrideConfig struct {
	Date    string   `json:"date"`
	Members *int64   `json:"members"`
	Price   *float64 `json:"price"`
	Stock   *int64   `json:"stock"`
}

func (c OverrideConfig) empty() bool {
	return c.Date == "" && c.Members == nil && c.Price == nil && c.Stock == nil
}

// ApplyOverride validates the override and upserts it into the table.
// Invalid overrides are skipped with a warning, they never abort the
// run. Returns whether a row was written.
func ApplyOverride(table *Table, cfg OverrideConfig, today time.Time) bool {
	if cfg.empty() {
		return false
	}

	var missing []string
	if cfg.Date == "" {
		missing = append(missing, "date")
	}
	if cfg.Members == nil {
		missing = append(missing, "members")
	}
	if cfg.Price == nil {
		missing = append(missing, "price")
	}
	if cfg.Stock == nil {
		missing = append(missing, "stock")
	}
	if len(missing) > 0 {
		slog.Warn(
			"manual override ignored, incomplete fields",
			"missing", strings.Join(missing, ", "),
		)
		return false
	}

	day, ok := parseDate(cfg.Date)
	if !ok {
		slog.Warn("manual override ignored, unparsable date", "date", cfg.Date)
		return false
	}
	if !day.Before(today) {
		slog.Warn(
			"manual override ignored, date must be strictly before today",
			"date", cfg.Date,
		)
		return false
	}

	table.Upsert(Observation{
		Date:    cfg.Date,
		Members: *cfg.Members,
		Price:   *cfg.Price,
		Stock:   *cfg.Stock,
	})
	slog.Info(
		"manual override applied",
		"date", cfg.Date,
		"members", *cfg.Members,
		"price", *cfg.Price,
		"stock", *cfg.Stock,
	)
	return true
}
