package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"tokenwatch-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	parsed, ok := parseDate(s)
	require.True(t, ok, s)
	return parsed
}

func TestReadTableMissingFile(t *testing.T) {
	table, err := ReadTable(filepath.Join(t.TempDir(), "stats.csv"))
	require.NoError(t, err)
	require.Empty(t, table.Rows)
}

func TestUpsertRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")

	table := &Table{}
	table.Upsert(Observation{Date: "2025-01-17", Members: 1000, Price: 0.1234, Stock: 50000})
	require.NoError(t, table.Write(path))

	read, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, read.Rows, 1)
	require.Equal(t, "2025-01-17", read.Rows[0].Date)
	require.Equal(t, int64(1000), read.Rows[0].Members)
	require.Equal(t, 0.1234, read.Rows[0].Price)
	require.Equal(t, int64(50000), read.Rows[0].Stock)
}

func TestUpsertIdempotent(t *testing.T) {
	table := &Table{}
	obs := Observation{Date: "2025-01-17", Members: 1000, Price: 0.1234, Stock: 50000}
	table.Upsert(obs)
	table.Upsert(obs)
	table.Upsert(obs)
	require.Len(t, table.Rows, 1)
	require.Equal(t, int64(1000), table.Rows[0].Members)
}

func TestUpsertLastWriteWins(t *testing.T) {
	table := &Table{}
	table.Upsert(Observation{Date: "2025-01-17", Members: 1000, Price: 0.1, Stock: 50000})
	table.Upsert(Observation{Date: "2025-01-17", Members: 1050, Price: 0.115, Stock: 49000})
	require.Len(t, table.Rows, 1)
	require.Equal(t, int64(1050), table.Rows[0].Members)
	require.Equal(t, 0.115, table.Rows[0].Price)
	require.Equal(t, int64(49000), table.Rows[0].Stock)
}

func TestUpsertSortsAscending(t *testing.T) {
	table := &Table{}
	table.Upsert(Observation{Date: "2025-01-18", Members: 3})
	table.Upsert(Observation{Date: "2025-01-15", Members: 1})
	table.Upsert(Observation{Date: "2025-01-17", Members: 2})
	require.Len(t, table.Rows, 3)
	require.Equal(t, "2025-01-15", table.Rows[0].Date)
	require.Equal(t, "2025-01-17", table.Rows[1].Date)
	require.Equal(t, "2025-01-18", table.Rows[2].Date)
}

func TestReadTableSchemaBackfill(t *testing.T) {
	// files written before price/stock existed only carry two columns
	path := filepath.Join(t.TempDir(), "stats.csv")
	err := os.WriteFile(path, []byte("date,members\n2025-01-15,900\n2025-01-16,950\n"), 0644)
	require.NoError(t, err)

	table, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	require.Equal(t, int64(900), table.Rows[0].Members)
	require.Equal(t, 0.0, table.Rows[0].Price)
	require.Equal(t, int64(0), table.Rows[0].Stock)
}

func TestReadTableLegacyDateFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	err := os.WriteFile(path, []byte(
		"date,members,price,stock\n"+
			"2025/01/15,900,0.1,51000\n"+
			"2025-1-16,950,0.11,50500\n"+
			"not-a-date,999,0.5,1\n"+
			"2025-01-17,1000,0.12,50000\n",
	), 0644)
	require.NoError(t, err)

	table, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 4)

	prior, ok := table.Prior(day(t, "2025-01-18"))
	require.True(t, ok)
	require.Equal(t, "2025-01-17", prior.Date)

	// the unparsable row survives a rewrite untouched
	require.NoError(t, table.Write(path))
	read, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, read.Rows, 4)
	found := false
	for _, row := range read.Rows {
		if row.Date == "not-a-date" {
			found = true
			require.Equal(t, int64(999), row.Members)
		}
	}
	require.True(t, found)
}

func TestWriteNormalizesLegacyDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	err := os.WriteFile(path, []byte("date,members,price,stock\n2025/01/15,900,0.1,51000\n"), 0644)
	require.NoError(t, err)

	table, err := ReadTable(path)
	require.NoError(t, err)
	require.NoError(t, table.Write(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "2025-01-15,900,0.1,51000")
}

func TestReadTableDuplicateRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	err := os.WriteFile(path, []byte(
		"date,members,price,stock\n"+
			"2025-01-15,900,0.1,51000\n"+
			"2025-01-15,910,0.11,50900\n",
	), 0644)
	require.NoError(t, err)

	table, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	// the next upsert collapses the duplicate, keeping the later row
	table.Upsert(Observation{Date: "2025-01-16", Members: 950, Price: 0.12, Stock: 50000})
	require.Len(t, table.Rows, 2)
	require.Equal(t, int64(910), table.Rows[0].Members)
}

func TestParseDate(t *testing.T) {
	parsed, ok := parseDate("2025-01-17T06:00:00+09:00")
	require.True(t, ok)
	require.Equal(t, day(t, "2025-01-17"), parsed)
	require.Equal(t, timezone.Location, parsed.Location())

	_, ok = parseDate("")
	require.False(t, ok)
}
