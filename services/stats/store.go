package stats

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"tokenwatch-backend/lib/timezone"
)

const canonicalDateLayout = "2006-01-02"

// layouts that have shown up in the csv over its lifetime
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
}

// Observation is one dated row of the stats table.
type Observation struct {
	Date    string
	Members int64
	Price   float64
	Stock   int64

	parsed   time.Time
	parsedOk bool
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, timezone.Location)
		if err == nil {
			return t, true
		}
	}
	// timestamps like "2025-01-17T06:00:00+09:00" reduce to their date
	if len(s) > len(canonicalDateLayout) {
		t, err := time.ParseInLocation(canonicalDateLayout, s[:len(canonicalDateLayout)], timezone.Location)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Table is the in-memory form of the persisted stats csv.
type Table struct {
	Rows []Observation
}

// ReadTable loads the stats csv. A missing file yields an empty table.
// Files written before the price/stock columns existed get those
// columns backfilled with zero values. Rows whose date cannot be
// parsed are retained but flagged so diffing skips them.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		slog.Info("stats table does not exist yet, starting empty", "path", path)
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	columns := map[string]int{}
	for idx, name := range records[0] {
		columns[strings.TrimSpace(name)] = idx
	}
	if _, ok := columns["date"]; !ok {
		return nil, fmt.Errorf("parse %s: no date column in header", path)
	}

	table := &Table{}
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		row := Observation{
			Date:    field(record, columns, "date"),
			Members: parseIntColumn(field(record, columns, "members")),
			Price:   parseFloatColumn(field(record, columns, "price")),
			Stock:   parseIntColumn(field(record, columns, "stock")),
		}
		row.parsed, row.parsedOk = parseDate(row.Date)
		if !row.parsedOk {
			slog.Warn(
				"row with unparsable date retained but excluded from diffing",
				"date", row.Date,
			)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseIntColumn(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseFloatColumn(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return n
}

// Upsert replaces the row with the same date or appends a new one,
// then normalizes the table: one row per date (latest write wins),
// sorted ascending. Rows with unparsable dates sort first, in their
// original order.
func (t *Table) Upsert(obs Observation) {
	obs.parsed, obs.parsedOk = parseDate(obs.Date)
	if obs.parsedOk {
		obs.Date = obs.parsed.Format(canonicalDateLayout)
	}

	replaced := false
	for i := range t.Rows {
		if sameDate(t.Rows[i], obs) {
			t.Rows[i] = obs
			replaced = true
		}
	}
	if !replaced {
		t.Rows = append(t.Rows, obs)
	}

	// legacy files may already hold duplicates, keep the last write
	var deduped []Observation
	for i := len(t.Rows) - 1; i >= 0; i-- {
		dup := false
		for _, kept := range deduped {
			if sameDate(kept, t.Rows[i]) {
				dup = true
				break
			}
		}
		if !dup {
			deduped = append(deduped, t.Rows[i])
		}
	}
	for i, j := 0, len(deduped)-1; i < j; i, j = i+1, j-1 {
		deduped[i], deduped[j] = deduped[j], deduped[i]
	}
	t.Rows = deduped

	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if a.parsedOk != b.parsedOk {
			return !a.parsedOk
		}
		if !a.parsedOk {
			return false
		}
		return a.parsed.Before(b.parsed)
	})
}

func sameDate(a, b Observation) bool {
	if a.parsedOk && b.parsedOk {
		return a.parsed.Equal(b.parsed)
	}
	return a.Date == b.Date
}

// Prior returns the latest row dated strictly before the given day,
// however many days back that is. Rows with unparsable dates are
// skipped.
func (t *Table) Prior(day time.Time) (Observation, bool) {
	var prior Observation
	found := false
	for _, row := range t.Rows {
		if !row.parsedOk || !row.parsed.Before(day) {
			continue
		}
		if !found || !row.parsed.Before(prior.parsed) {
			prior = row
			found = true
		}
	}
	return prior, found
}

// Write persists the whole table, rewriting the file through a temp
// file rename. Parsable dates are emitted in canonical form, raw
// strings are preserved for the rest.
func (t *Table) Write(path string) error {
	records := [][]string{{"date", "members", "price", "stock"}}
	for _, row := range t.Rows {
		date := row.Date
		if row.parsedOk {
			date = row.parsed.Format(canonicalDateLayout)
		}
		records = append(records, []string{
			date,
			strconv.FormatInt(row.Members, 10),
			strconv.FormatFloat(row.Price, 'f', -1, 64),
			strconv.FormatInt(row.Stock, 10),
		})
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".stats-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	err = writer.WriteAll(records)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
